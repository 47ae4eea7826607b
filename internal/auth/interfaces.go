package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/fitness-api/internal/user"
)

// UserRepository is the credential store as seen by the auth flows
type UserRepository interface {
	Create(ctx context.Context, u *user.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	Update(ctx context.Context, u *user.User) (int64, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) (int64, error)
	Delete(ctx context.Context, userID uuid.UUID) (int64, error)
}

type AuthRepository interface {
	Create(ctx context.Context, rec *AuthRecord) (int64, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*AuthRecord, error)
	Update(ctx context.Context, rec *AuthRecord) (int64, error)
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) (int64, error)
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (int64, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}

type InvalidTokenStore interface {
	Create(ctx context.Context, userID uuid.UUID, token string) error
	Exists(ctx context.Context, userID uuid.UUID, token string) (bool, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Store hands out repositories bound to either the pool or a transaction
type Store interface {
	Users(db bun.IDB) UserRepository
	Auths(db bun.IDB) AuthRepository
	InvalidTokens(db bun.IDB) InvalidTokenStore
}

// BunStore is the Store backed by the bun repositories
type BunStore struct{}

func (BunStore) Users(db bun.IDB) UserRepository            { return user.NewRepository(db) }
func (BunStore) Auths(db bun.IDB) AuthRepository            { return NewRepository(db) }
func (BunStore) InvalidTokens(db bun.IDB) InvalidTokenStore { return NewInvalidTokenRepository(db) }

// UserDataCleaner removes rows another package owns for a user. Cleaners run
// inside the account deletion transaction.
type UserDataCleaner func(ctx context.Context, db bun.IDB, userID uuid.UUID) error

// EmailSender delivers the password reset mail
type EmailSender interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

// ExternalIdentity is what a federated identity provider vouches for
type ExternalIdentity struct {
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Picture       string
}

// IdentityProvider runs the authorization code exchange with a federated
// provider
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (*ExternalIdentity, error)
}
