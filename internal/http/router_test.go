package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/fitness-api/internal/apperr"
	"github.com/redmonkez12/fitness-api/internal/auth"
	"github.com/redmonkez12/fitness-api/internal/config"
	"github.com/redmonkez12/fitness-api/internal/exercise"
	"github.com/redmonkez12/fitness-api/internal/feedback"
	"github.com/redmonkez12/fitness-api/internal/httputil"
	"github.com/redmonkez12/fitness-api/internal/logging"
)

// newTestRouter wires real handlers around services that are never reached:
// every request below is answered before a store would be touched
func newTestRouter(t *testing.T, env string) http.Handler {
	t.Helper()
	logger := logging.New(slog.NewTextHandler(io.Discard, nil))

	signer, err := auth.NewSigner("jwt", "secret")
	require.NoError(t, err)
	tokens := auth.NewTokenService(signer, signer, signer, time.Minute, time.Hour, time.Hour)
	ledger := auth.NewLedger(nil, nil, logger)

	svc := auth.NewService(nil, nil, auth.BunStore{}, tokens, ledger, nil, nil, logger, auth.Options{})
	cfg := &config.Config{Server: config.ServerConfig{Env: env, TrustedOrigins: []string{"http://localhost:3000"}}}

	return NewRouter(cfg, Handlers{
		Auth:     auth.NewHandler(svc, nil, nil, nil, nil, auth.CookieConfig{}),
		Gate:     auth.NewMiddleware(tokens, ledger),
		Exercise: exercise.NewHandler(exercise.NewService(nil)),
		Feedback: feedback.NewHandler(nil),
	}, logger)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, "prod")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"api is running"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'none'", rec.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t, "prod")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/user/me"},
		{http.MethodPatch, "/v1/user/me"},
		{http.MethodDelete, "/v1/user/me"},
		{http.MethodPost, "/v1/user/feedback"},
		{http.MethodGet, "/v1/exercise/"},
		{http.MethodPost, "/v1/exercise/"},
		{http.MethodDelete, "/v1/exercise/3f0e1c52-7f0b-4c3e-9a51-7d1d0f7e2a10"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			var body httputil.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, apperr.CodeMissingAuth, body.Code)
		})
	}
}

func TestUserRoutesAreNotCached(t *testing.T) {
	router := newTestRouter(t, "prod")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/user/me", nil))

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestLogoutWithoutSession(t *testing.T) {
	router := newTestRouter(t, "prod")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/user/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Result().Cookies(), 3)
}

func TestGoogleRoutesNeedConfiguration(t *testing.T) {
	router := newTestRouter(t, "prod")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/user/google", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwaggerOnlyInDevelopment(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, "prod").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(t, "dev").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, "prod")

	req := httptest.NewRequest(http.MethodOptions, "/v1/user/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
