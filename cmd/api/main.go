package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/fitness-api/internal/auth"
	"github.com/redmonkez12/fitness-api/internal/config"
	"github.com/redmonkez12/fitness-api/internal/database"
	"github.com/redmonkez12/fitness-api/internal/email"
	"github.com/redmonkez12/fitness-api/internal/exercise"
	"github.com/redmonkez12/fitness-api/internal/feedback"
	httpServer "github.com/redmonkez12/fitness-api/internal/http"
	"github.com/redmonkez12/fitness-api/internal/logging"
	"github.com/redmonkez12/fitness-api/internal/ratelimit"
	"github.com/redmonkez12/fitness-api/internal/storage"
)

// @title           Fitness API
// @version         1.0
// @description     REST backend of the fitness app: accounts, sessions, exercises and feedback.

// @host      localhost:8080
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Server)
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_format", cfg.Auth.TokenFormat,
	)

	ctx := context.Background()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(ctx, db.DB); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	tokens, err := newTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	s3Client, err := storage.NewS3Client(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}
	images := storage.NewS3ImageStore(s3Client, cfg.Storage.Bucket, cfg.Storage.PublicURL)

	ledger := auth.NewLedger(
		auth.NewInvalidTokenRepository(db),
		auth.NewRedisRevocationCache(redisClient),
		logger,
	)

	authService := auth.NewService(
		db,
		database.NewTxRunner(db),
		auth.BunStore{},
		tokens,
		ledger,
		email.NewService(cfg.Email),
		images,
		logger,
		auth.Options{
			DefaultPhotoID:  cfg.Storage.DefaultPhotoID,
			DefaultPhotoURL: cfg.Storage.DefaultPhotoURL,
			Cleaners:        []auth.UserDataCleaner{exercise.DeleteUserData, feedback.DeleteUserData},
		},
	)

	var provider auth.IdentityProvider
	if cfg.Google.Enabled() {
		provider = auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	} else {
		logger.Info("google sign-in disabled", "reason", "GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set")
	}

	authHandler := auth.NewHandler(
		authService,
		ratelimit.NewLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window),
		images,
		provider,
		auth.NewStateSigner(cfg.Auth.SessionSecret),
		auth.CookieConfig{
			Secure:     !cfg.Server.IsDevelopment(),
			AccessTTL:  cfg.Auth.AccessTokenDuration,
			RefreshTTL: cfg.Auth.RefreshTokenDuration,
		},
	)

	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:     authHandler,
		Gate:     auth.NewMiddleware(tokens, ledger),
		Exercise: exercise.NewHandler(exercise.NewService(exercise.NewRepository(db))),
		Feedback: feedback.NewHandler(feedback.NewRepository(db)),
	}, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func newLogger(cfg config.ServerConfig) *logging.Logger {
	if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
		return logging.NewLoggerWithLevel(cfg.IsDevelopment(), level)
	}
	return logging.NewLogger(cfg.IsDevelopment())
}

// newTokenService builds one signer per token kind so a leaked secret only
// compromises that kind
func newTokenService(cfg config.AuthConfig) (*auth.TokenService, error) {
	access, err := auth.NewSigner(cfg.TokenFormat, cfg.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("access signer: %w", err)
	}
	refresh, err := auth.NewSigner(cfg.TokenFormat, cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("refresh signer: %w", err)
	}
	reset, err := auth.NewSigner(cfg.TokenFormat, cfg.ResetSecret)
	if err != nil {
		return nil, fmt.Errorf("reset signer: %w", err)
	}

	return auth.NewTokenService(access, refresh, reset,
		cfg.AccessTokenDuration, cfg.RefreshTokenDuration, cfg.ResetTokenDuration), nil
}

// initRedis connects to Redis and verifies the connection
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
