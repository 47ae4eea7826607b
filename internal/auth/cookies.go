package auth

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	OAuthStateCookie   = "oauth_state"
)

// CookieConfig controls how token cookies are written
type CookieConfig struct {
	Secure     bool // false only in development over plain http
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SetAuthCookies writes both tokens as HttpOnly cookies living as long as the tokens
func SetAuthCookies(w http.ResponseWriter, cfg CookieConfig, tokens *AuthTokens) {
	http.SetCookie(w, newCookie(AccessTokenCookie, tokens.AccessToken, cfg.AccessTTL, cfg.Secure))
	http.SetCookie(w, newCookie(RefreshTokenCookie, tokens.RefreshToken, cfg.RefreshTTL, cfg.Secure))
}

// ClearAuthCookies expires every cookie the auth flows set
func ClearAuthCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, OAuthStateCookie} {
		c := newCookie(name, "", 0, secure)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// GetAccessTokenFromCookie extracts the access token from cookies
func GetAccessTokenFromCookie(r *http.Request) (string, error) {
	return cookieValue(r, AccessTokenCookie)
}

// GetRefreshTokenFromCookie extracts the refresh token from cookies
func GetRefreshTokenFromCookie(r *http.Request) (string, error) {
	return cookieValue(r, RefreshTokenCookie)
}

func cookieValue(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	if c.Value == "" {
		return "", http.ErrNoCookie
	}
	return c.Value, nil
}

func newCookie(name, value string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
