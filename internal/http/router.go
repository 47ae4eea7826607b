package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/fitness-api/internal/auth"
	"github.com/redmonkez12/fitness-api/internal/config"
	"github.com/redmonkez12/fitness-api/internal/exercise"
	"github.com/redmonkez12/fitness-api/internal/feedback"
	"github.com/redmonkez12/fitness-api/internal/httputil"
	"github.com/redmonkez12/fitness-api/internal/logging"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth     *auth.Handler
	Gate     *auth.Middleware
	Exercise *exercise.Handler
	Feedback *feedback.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true, // token cookies
			MaxAge:           300,
		}))
	}

	r.Use(SecurityHeaders(!cfg.Server.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)

	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled", "path", "/swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Use(NoStore)
			h.Auth.Routes(r, h.Gate)
			r.With(h.Gate.RequireAuth).Post("/feedback", httputil.Handle(h.Feedback.Send))
		})

		r.Route("/exercise", func(r chi.Router) {
			r.Use(h.Gate.RequireAuth)
			h.Exercise.Routes(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, "Route not found", http.StatusNotFound)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
