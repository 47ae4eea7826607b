package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Token subjects. A token minted for one purpose never verifies for another.
const (
	SubjectAccess        = "access"
	SubjectRefresh       = "refresh"
	SubjectPasswordReset = "password_reset"
)

// Claims is the payload carried by every token the service mints
type Claims struct {
	UserID    uuid.UUID
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Signer mints and verifies tokens with a single secret.
// Verify returns ErrExpiredToken or ErrInvalidToken on failure.
type Signer interface {
	Sign(claims Claims) (string, error)
	Verify(token string) (*Claims, error)
}

// NewSigner builds a Signer for the configured token format
func NewSigner(format, secret string) (Signer, error) {
	switch format {
	case "jwt", "":
		return NewJWTSigner(secret)
	case "paseto":
		return NewPasetoSigner(secret)
	default:
		return nil, fmt.Errorf("unknown token format %q", format)
	}
}

// AuthTokens is a freshly minted access/refresh pair
type AuthTokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenService mints and verifies the three token kinds, each with its own
// secret and lifetime
type TokenService struct {
	access  Signer
	refresh Signer
	reset   Signer

	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration

	now func() time.Time
}

func NewTokenService(access, refresh, reset Signer, accessTTL, refreshTTL, resetTTL time.Duration) *TokenService {
	return &TokenService{
		access:     access,
		refresh:    refresh,
		reset:      reset,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateTokens mints a new access/refresh pair for the user
func (s *TokenService) GenerateTokens(userID uuid.UUID) (*AuthTokens, error) {
	now := s.now()

	access, accessExp, err := s.mint(s.access, SubjectAccess, userID, now, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, refreshExp, err := s.mint(s.refresh, SubjectRefresh, userID, now, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ResetToken mints a password reset token and returns it with its expiration
func (s *TokenService) ResetToken(userID uuid.UUID) (string, time.Time, error) {
	token, exp, err := s.mint(s.reset, SubjectPasswordReset, userID, s.now(), s.resetTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign reset token: %w", err)
	}
	return token, exp, nil
}

func (s *TokenService) VerifyAccess(token string) (*Claims, error) {
	return verify(s.access, SubjectAccess, token)
}

func (s *TokenService) VerifyRefresh(token string) (*Claims, error) {
	return verify(s.refresh, SubjectRefresh, token)
}

func (s *TokenService) VerifyReset(token string) (*Claims, error) {
	return verify(s.reset, SubjectPasswordReset, token)
}

func (s *TokenService) mint(signer Signer, subject string, userID uuid.UUID, now time.Time, ttl time.Duration) (string, time.Time, error) {
	// Token encoders keep second precision, truncate so callers see the stored value
	now = now.Truncate(time.Second)
	exp := now.Add(ttl)

	token, err := signer.Sign(Claims{
		UserID:    userID,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: exp,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func verify(signer Signer, subject, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims, err := signer.Verify(token)
	if err != nil {
		return nil, err
	}

	if claims.Subject != subject || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
