package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/fitness-api/internal/httputil"
	"github.com/redmonkez12/fitness-api/internal/logging"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const identityContextKey ContextKey = "identity"

// Identity is what the gate attaches to an authenticated request
type Identity struct {
	UserID      uuid.UUID
	AccessToken string
	Claims      *Claims
}

type revocationChecker interface {
	IsRevoked(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (bool, error)
}

// Middleware is the authorization gate in front of protected routes
type Middleware struct {
	tokens *TokenService
	ledger revocationChecker
}

func NewMiddleware(tokens *TokenService, ledger revocationChecker) *Middleware {
	return &Middleware{tokens: tokens, ledger: ledger}
}

// RequireAuth rejects the request unless it carries a valid, unrevoked access token
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.authenticate(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth attaches the identity when the request proves one and lets
// the request through either way
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.authenticate(r)
		if err != nil {
			if !errors.Is(err, ErrMissingAuth) {
				logging.GetLoggerFromContext(r.Context()).Debug("optional auth skipped", "error", err.Error())
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (m *Middleware) authenticate(r *http.Request) (*Identity, error) {
	token, err := extractToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := m.tokens.VerifyAccess(token)
	if err != nil {
		return nil, err
	}

	revoked, err := m.ledger.IsRevoked(r.Context(), claims.UserID, token, claims.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return &Identity{UserID: claims.UserID, AccessToken: token, Claims: claims}, nil
}

// extractToken prefers the Authorization header and falls back to the cookie
func extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", ErrAuthHeader
		}
		return parts[1], nil
	}

	token, err := GetAccessTokenFromCookie(r)
	if err != nil {
		return "", ErrMissingAuth
	}
	return token, nil
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok && id != nil
}

// UserIDFromContext extracts the authenticated user id from the request context
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return id.UserID, true
}

// AccessTokenFromContext returns the raw access token the request was authenticated with
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return "", false
	}
	return id.AccessToken, true
}
