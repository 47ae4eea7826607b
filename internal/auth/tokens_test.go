package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, format string) *TokenService {
	t.Helper()
	access, err := NewSigner(format, "access-secret")
	require.NoError(t, err)
	refresh, err := NewSigner(format, "refresh-secret")
	require.NoError(t, err)
	reset, err := NewSigner(format, "reset-secret")
	require.NoError(t, err)
	return NewTokenService(access, refresh, reset, 15*time.Minute, 24*time.Hour, time.Hour)
}

func TestTokenService_RoundTrip(t *testing.T) {
	for _, format := range []string{"jwt", "paseto"} {
		t.Run(format, func(t *testing.T) {
			ts := newTestTokenService(t, format)
			userID := uuid.New()

			tokens, err := ts.GenerateTokens(userID)
			require.NoError(t, err)
			assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
			assert.True(t, tokens.RefreshExpiresAt.After(tokens.AccessExpiresAt))

			claims, err := ts.VerifyAccess(tokens.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
			assert.Equal(t, SubjectAccess, claims.Subject)
			assert.NotEmpty(t, claims.ID)
			assert.True(t, claims.ExpiresAt.Equal(tokens.AccessExpiresAt))

			claims, err = ts.VerifyRefresh(tokens.RefreshToken)
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
			assert.Equal(t, SubjectRefresh, claims.Subject)

			reset, exp, err := ts.ResetToken(userID)
			require.NoError(t, err)
			claims, err = ts.VerifyReset(reset)
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
			assert.True(t, claims.ExpiresAt.Equal(exp))
		})
	}
}

func TestTokenService_TokensAreUnique(t *testing.T) {
	ts := newTestTokenService(t, "jwt")
	userID := uuid.New()

	first, err := ts.GenerateTokens(userID)
	require.NoError(t, err)
	second, err := ts.GenerateTokens(userID)
	require.NoError(t, err)

	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestTokenService_KindsDoNotCrossVerify(t *testing.T) {
	for _, format := range []string{"jwt", "paseto"} {
		t.Run(format, func(t *testing.T) {
			ts := newTestTokenService(t, format)

			tokens, err := ts.GenerateTokens(uuid.New())
			require.NoError(t, err)

			_, err = ts.VerifyRefresh(tokens.AccessToken)
			assert.ErrorIs(t, err, ErrInvalidToken)
			_, err = ts.VerifyAccess(tokens.RefreshToken)
			assert.ErrorIs(t, err, ErrInvalidToken)
			_, err = ts.VerifyReset(tokens.AccessToken)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenService_SubjectCheckedWithSharedSecret(t *testing.T) {
	signer, err := NewJWTSigner("shared")
	require.NoError(t, err)
	ts := NewTokenService(signer, signer, signer, time.Minute, time.Hour, time.Hour)

	tokens, err := ts.GenerateTokens(uuid.New())
	require.NoError(t, err)

	_, err = ts.VerifyAccess(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Expired(t *testing.T) {
	for _, format := range []string{"jwt", "paseto"} {
		t.Run(format, func(t *testing.T) {
			ts := newTestTokenService(t, format)
			ts.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

			tokens, err := ts.GenerateTokens(uuid.New())
			require.NoError(t, err)

			_, err = ts.VerifyAccess(tokens.AccessToken)
			assert.ErrorIs(t, err, ErrExpiredToken)

			reset, _, err := ts.ResetToken(uuid.New())
			require.NoError(t, err)
			_, err = ts.VerifyReset(reset)
			assert.ErrorIs(t, err, ErrExpiredToken)
		})
	}
}

func TestTokenService_Garbage(t *testing.T) {
	for _, format := range []string{"jwt", "paseto"} {
		t.Run(format, func(t *testing.T) {
			ts := newTestTokenService(t, format)

			tokens, err := ts.GenerateTokens(uuid.New())
			require.NoError(t, err)

			for _, token := range []string{"", "garbage", tokens.AccessToken + "x", tokens.AccessToken[:len(tokens.AccessToken)-4]} {
				_, err := ts.VerifyAccess(token)
				assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
			}
		})
	}
}

func TestTokenService_NilUserRejected(t *testing.T) {
	ts := newTestTokenService(t, "jwt")

	tokens, err := ts.GenerateTokens(uuid.Nil)
	require.NoError(t, err)

	_, err = ts.VerifyAccess(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSigner(t *testing.T) {
	_, err := NewSigner("xml", "secret")
	assert.Error(t, err)

	_, err = NewSigner("jwt", "")
	assert.Error(t, err)

	_, err = NewSigner("paseto", "")
	assert.Error(t, err)

	s, err := NewSigner("", "secret")
	require.NoError(t, err)
	assert.IsType(t, &JWTSigner{}, s)
}
