package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/fitness-api/internal/database"
	"github.com/redmonkez12/fitness-api/internal/logging"
	"github.com/redmonkez12/fitness-api/internal/storage"
	"github.com/redmonkez12/fitness-api/internal/user"
)

// Options carries the optional knobs of the auth flows
type Options struct {
	DefaultPhotoID  string
	DefaultPhotoURL string
	Argon2          Argon2Params
	Cleaners        []UserDataCleaner
}

// Service handles authentication business logic
type Service struct {
	db     bun.IDB
	tx     database.TxRunner
	store  Store
	tokens *TokenService
	ledger *Ledger
	email  EmailSender
	images storage.ImageStore
	logger *logging.Logger
	opts   Options
	now    func() time.Time
}

func NewService(
	db bun.IDB,
	tx database.TxRunner,
	store Store,
	tokens *TokenService,
	ledger *Ledger,
	emailSender EmailSender,
	images storage.ImageStore,
	logger *logging.Logger,
	opts Options,
) *Service {
	if opts.Argon2 == (Argon2Params{}) {
		opts.Argon2 = DefaultArgon2Params
	}
	return &Service{
		db:     db,
		tx:     tx,
		store:  store,
		tokens: tokens,
		ledger: ledger,
		email:  emailSender,
		images: images,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// AuthResult is what every successful sign-in produces
type AuthResult struct {
	User   *user.User
	Tokens *AuthTokens
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	LastName string
	Username string
}

// Register creates the user with its auth record and signs it in
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrCredentialsRequired
	}

	users := s.store.Users(s.db)
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(in.Password, s.opts.Argon2)
	if err != nil {
		return nil, ErrUserNotCreated.WithCause(err)
	}

	u := &user.User{
		Email:                email,
		Name:                 in.Name,
		LastName:             in.LastName,
		Username:             in.Username,
		PasswordHash:         hash,
		PublicIDProfilePhoto: s.opts.DefaultPhotoID,
		URLProfilePhoto:      s.opts.DefaultPhotoURL,
	}

	if err := s.createUserWithAuth(ctx, u); err != nil {
		return nil, err
	}

	logging.GetLoggerFromContext(ctx).Info("user registered", "user_id", u.ID)

	return s.Authorize(ctx, u)
}

// createUserWithAuth writes the user and its auth record atomically
func (s *Service) createUserWithAuth(ctx context.Context, u *user.User) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context, db bun.IDB) error {
		n, err := s.store.Users(db).Create(ctx, u)
		if err != nil {
			if errors.Is(err, user.ErrDuplicateEmail) {
				return ErrUserExists
			}
			return err
		}
		if n != 1 {
			return ErrUserNotCreated
		}

		n, err = s.store.Auths(db).Create(ctx, &AuthRecord{UserID: u.ID})
		if err != nil {
			return err
		}
		if n != 1 {
			return ErrUserNotCreated
		}
		return nil
	})
}

// Login checks the credentials and signs the user in. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.store.Users(s.db).GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return s.Authorize(ctx, u)
}

// Authorize mints a token pair and persists the refresh token, replacing
// any previous one
func (s *Service) Authorize(ctx context.Context, u *user.User) (*AuthResult, error) {
	tokens, err := s.tokens.GenerateTokens(u.ID)
	if err != nil {
		return nil, ErrTryAgainLater.WithCause(err)
	}

	n, err := s.store.Auths(s.db).SetRefreshToken(ctx, u.ID, &tokens.RefreshToken)
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, ErrTryAgainLater
	}

	return &AuthResult{User: u, Tokens: tokens}, nil
}

// LoginWithIdentity signs in the user a federated provider vouched for,
// creating the account on first sight. Only a provider-verified email may be
// matched to an existing account.
func (s *Service) LoginWithIdentity(ctx context.Context, ident *ExternalIdentity) (*AuthResult, error) {
	email := strings.TrimSpace(ident.Email)
	if email == "" || !ident.EmailVerified {
		return nil, ErrInvalidAuthorization
	}

	users := s.store.Users(s.db)
	u, err := users.GetByEmail(ctx, email)
	if err == nil {
		return s.Authorize(ctx, u)
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	// The account can only be entered through the provider until a reset
	secret, err := generateRandomToken()
	if err != nil {
		return nil, ErrUserNotCreated.WithCause(err)
	}
	hash, err := HashPassword(secret, s.opts.Argon2)
	if err != nil {
		return nil, ErrUserNotCreated.WithCause(err)
	}

	u = &user.User{
		Email:                email,
		Name:                 ident.GivenName,
		LastName:             ident.FamilyName,
		PasswordHash:         hash,
		PublicIDProfilePhoto: s.opts.DefaultPhotoID,
		URLProfilePhoto:      s.opts.DefaultPhotoURL,
	}
	if ident.Picture != "" {
		// Keeps the default public id so the provider's picture is never deleted
		u.URLProfilePhoto = ident.Picture
	}

	if err := s.createUserWithAuth(ctx, u); err != nil {
		if !errors.Is(err, ErrUserExists) {
			return nil, err
		}
		// Lost a race with a concurrent first sign-in
		existing, getErr := users.GetByEmail(ctx, email)
		if getErr != nil {
			return nil, getErr
		}
		u = existing
	} else {
		logging.GetLoggerFromContext(ctx).Info("user created from federated identity", "user_id", u.ID)
	}

	return s.Authorize(ctx, u)
}

// ForgotPassword stores a fresh reset token for the user and mails it.
// A newer token replaces any outstanding one.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.store.Users(s.db).GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	token, expiresAt, err := s.tokens.ResetToken(u.ID)
	if err != nil {
		return ErrTryAgainLater.WithCause(err)
	}

	n, err := s.store.Auths(s.db).SetResetToken(ctx, u.ID, token, expiresAt)
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrTryAgainLater
	}

	// Delivery is not awaited; the request context may end before the mail is out
	go func(ctx context.Context) {
		if err := s.email.SendPasswordResetEmail(ctx, u.Email, token); err != nil {
			s.logger.Warn("failed to send password reset email", "user_id", u.ID, "error", err)
		}
	}(context.WithoutCancel(ctx))

	return nil
}

// ResetPassword consumes a reset token and sets the new password. The token
// must be the one currently stored for the user and not past its expiration.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return ErrMissingResetToken
	}
	if password == "" {
		return ErrMissingPassword
	}

	claims, err := s.tokens.VerifyReset(token)
	if err != nil {
		return err
	}

	hash, err := HashPassword(password, s.opts.Argon2)
	if err != nil {
		return ErrTryAgainLater.WithCause(err)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, db bun.IDB) error {
		users := s.store.Users(db)
		auths := s.store.Auths(db)

		u, err := users.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		rec, err := auths.GetByUserID(ctx, u.ID)
		if err != nil {
			if errors.Is(err, ErrAuthRecordNotFound) {
				return ErrAuthNotFound
			}
			return err
		}

		if rec.ResetPasswordToken == nil || *rec.ResetPasswordToken != token {
			return ErrInvalidAuthorization
		}

		now := s.now().UTC()
		if rec.ResetPasswordTokenExpiration == nil || now.After(*rec.ResetPasswordTokenExpiration) {
			return ErrResetTokenExpired
		}

		n, err := users.UpdatePassword(ctx, u.ID, hash)
		if err != nil {
			return err
		}
		if n != 1 {
			return ErrTryAgainLater
		}

		rec.ResetPasswordToken = nil
		rec.ResetPasswordTokenExpiration = &now
		rec.RefreshToken = nil

		n, err = auths.Update(ctx, rec)
		if err != nil {
			return err
		}
		if n != 1 {
			return ErrTryAgainLater
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.GetLoggerFromContext(ctx).Info("password reset", "user_id", claims.UserID)
	return nil
}

// Refresh rotates the token pair. The presented refresh token must be the
// one currently stored for the user and must not be revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrMissingAuth
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.ledger.IsRevoked(ctx, claims.UserID, refreshToken, claims.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	rec, err := s.store.Auths(s.db).GetByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrAuthRecordNotFound) {
			return nil, ErrAuthNotFound
		}
		return nil, err
	}
	if rec.RefreshToken == nil || *rec.RefreshToken != refreshToken {
		return nil, ErrInvalidAuthorization
	}

	u, err := s.store.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.Authorize(ctx, u)
}

// LogoutInput names what the request carried. Any field may be empty.
type LogoutInput struct {
	UserID       uuid.UUID
	AccessToken  string
	AccessClaims *Claims
	RefreshToken string
}

// Logout revokes whatever tokens the request carried. It never fails; every
// problem is logged.
func (s *Service) Logout(ctx context.Context, in LogoutInput) {
	logger := logging.GetLoggerFromContext(ctx)

	userID := in.UserID
	var refreshClaims *Claims
	if in.RefreshToken != "" {
		if c, err := s.tokens.VerifyRefresh(in.RefreshToken); err == nil {
			refreshClaims = c
			if userID == uuid.Nil {
				userID = c.UserID
			}
		}
	}

	if userID == uuid.Nil {
		logger.Debug("logout without identity")
		return
	}

	if in.AccessToken != "" {
		exp := s.now().Add(s.tokens.AccessTTL())
		if in.AccessClaims != nil {
			exp = in.AccessClaims.ExpiresAt
		}
		if err := s.ledger.Revoke(ctx, userID, in.AccessToken, exp); err != nil {
			logger.Warn("failed to revoke access token", "user_id", userID, "error", err)
		}
	}

	if in.RefreshToken != "" {
		exp := s.now().Add(s.tokens.RefreshTTL())
		if refreshClaims != nil && refreshClaims.UserID == userID {
			exp = refreshClaims.ExpiresAt
		}
		if err := s.ledger.Revoke(ctx, userID, in.RefreshToken, exp); err != nil {
			logger.Warn("failed to revoke refresh token", "user_id", userID, "error", err)
		}

		auths := s.store.Auths(s.db)
		rec, err := auths.GetByUserID(ctx, userID)
		switch {
		case err != nil:
			logger.Warn("failed to load auth record on logout", "user_id", userID, "error", err)
		case rec.RefreshToken != nil && *rec.RefreshToken == in.RefreshToken:
			if _, err := auths.SetRefreshToken(ctx, userID, nil); err != nil {
				logger.Warn("failed to clear refresh token", "user_id", userID, "error", err)
			}
		}
	}

	logger.Info("user logged out", "user_id", userID)
}

// CurrentUser returns the profile of the authenticated user
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := s.store.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateInput is a profile update. Photo is an image already uploaded for
// this request; it is removed again when the update does not go through.
type UpdateInput struct {
	Changes          user.Changes
	PasswordSupplied bool
	Photo            *storage.Image
}

// UpdateCurrentUser merges the supplied fields into the stored profile
func (s *Service) UpdateCurrentUser(ctx context.Context, userID uuid.UUID, in UpdateInput) (updated *user.User, err error) {
	defer func() {
		if err != nil && in.Photo != nil {
			s.deleteImage(ctx, in.Photo.PublicID)
		}
	}()

	if in.PasswordSupplied {
		return nil, ErrPasswordChange
	}

	changes := in.Changes
	if in.Photo != nil {
		changes.PublicIDProfilePhoto = &in.Photo.PublicID
		changes.URLProfilePhoto = &in.Photo.URL
	}
	if changes.IsEmpty() {
		return nil, ErrNothingToUpdate
	}

	users := s.store.Users(s.db)

	current, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if changes.Email != nil {
		email := strings.TrimSpace(*changes.Email)
		changes.Email = &email
		if email != "" && email != current.Email {
			other, err := users.GetByEmail(ctx, *changes.Email)
			switch {
			case err == nil && other.ID != current.ID:
				return nil, ErrEmailTaken
			case err != nil && !errors.Is(err, user.ErrNotFound):
				return nil, err
			}
		}
	}

	merged := current.Merge(changes)

	n, err := users.Update(ctx, &merged)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if n == 0 {
		return nil, ErrUserNotUpdated
	}

	if in.Photo != nil && current.PublicIDProfilePhoto != in.Photo.PublicID {
		s.deleteImage(ctx, current.PublicIDProfilePhoto)
	}

	return &merged, nil
}

// DeleteCurrentUser removes the account and everything it owns
func (s *Service) DeleteCurrentUser(ctx context.Context, userID uuid.UUID) error {
	u, err := s.store.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, db bun.IDB) error {
		for _, clean := range s.opts.Cleaners {
			if err := clean(ctx, db, userID); err != nil {
				return err
			}
		}

		if _, err := s.store.InvalidTokens(db).DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		if _, err := s.store.Auths(db).DeleteByUserID(ctx, userID); err != nil {
			return err
		}

		n, err := s.store.Users(db).Delete(ctx, userID)
		if err != nil {
			return err
		}
		if n != 1 {
			return ErrUserNotDeleted
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.ledger.PurgeCache(ctx, userID)
	s.deleteImage(ctx, u.PublicIDProfilePhoto)

	logging.GetLoggerFromContext(ctx).Info("user deleted", "user_id", userID)
	return nil
}

// deleteImage removes a stored photo unless it is the shared default
func (s *Service) deleteImage(ctx context.Context, publicID string) {
	if publicID == "" || publicID == s.opts.DefaultPhotoID || s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, publicID); err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to delete image", "public_id", publicID, "error", err)
	}
}
