package auth

import (
	"context"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/fitness-api/internal/apperr"
	"github.com/redmonkez12/fitness-api/internal/httputil"
	"github.com/redmonkez12/fitness-api/internal/logging"
	"github.com/redmonkez12/fitness-api/internal/storage"
	"github.com/redmonkez12/fitness-api/internal/user"
)

const (
	maxPhotoSize  = 10 << 20 // 10 MiB
	oauthStateTTL = 10 * time.Minute
)

var (
	errTooManyRequests = apperr.New(http.StatusTooManyRequests, apperr.CodeTooManyRequests, "Too many requests, please try again later")
	errPhotoTooLarge   = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "Image must not exceed 10MB")
	errPhotoType       = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "Only image files are allowed")
	errMissingCode     = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "Missing authorization code")
)

// RateLimiter counts requests per client IP and purpose
type RateLimiter interface {
	CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error
}

// Handler contains HTTP handlers for the /user endpoints
type Handler struct {
	service     *Service
	rateLimiter RateLimiter
	images      storage.ImageStore
	provider    IdentityProvider
	state       *StateSigner
	cookies     CookieConfig
}

// NewHandler wires the handler. provider may be nil when federated sign-in
// is not configured.
func NewHandler(service *Service, rateLimiter RateLimiter, images storage.ImageStore, provider IdentityProvider, state *StateSigner, cookies CookieConfig) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		images:      images,
		provider:    provider,
		state:       state,
		cookies:     cookies,
	}
}

// GoogleEnabled reports whether the Google routes should be mounted
func (h *Handler) GoogleEnabled() bool {
	return h.provider != nil && h.state != nil
}

// Routes mounts the /user endpoints. Logout accepts anonymous callers so
// cookies are always cleared.
func (h *Handler) Routes(r chi.Router, gate *Middleware) {
	r.Post("/register", httputil.Handle(h.Register))
	r.Post("/login", httputil.Handle(h.Login))
	r.Post("/refresh", httputil.Handle(h.Refresh))
	r.Post("/forgot_password", httputil.Handle(h.ForgotPassword))
	r.Post("/reset_password/{reset_password_token}", httputil.Handle(h.ResetPassword))

	if h.GoogleEnabled() {
		r.Get("/google", httputil.Handle(h.GoogleLogin))
		r.Get("/google/callback", httputil.Handle(h.GoogleCallback))
	}

	r.With(gate.OptionalAuth).Post("/logout", httputil.Handle(h.Logout))

	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAuth)
		r.Get("/me", httputil.Handle(h.Me))
		r.Patch("/me", httputil.Handle(h.UpdateMe))
		r.Delete("/me", httputil.Handle(h.DeleteMe))
	})
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Username string `json:"username"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// UpdateUserRequest is the body of PATCH /user/me. Absent fields are kept.
type UpdateUserRequest struct {
	Email      *string  `json:"email"`
	Name       *string  `json:"name"`
	LastName   *string  `json:"last_name"`
	Username   *string  `json:"username"`
	DateBirth  *string  `json:"date_birth"`
	Theme      *string  `json:"theme"`
	Experience *string  `json:"experience"`
	Weight     *float64 `json:"weight"`
	Goal       *string  `json:"goal"`
	Rating     *int     `json:"rating"`
	Password   *string  `json:"password"`
}

// AuthResponse is returned by every endpoint that signs a user in
type AuthResponse struct {
	Message      string       `json:"message"`
	User         user.Profile `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create an account and sign it in. Tokens are returned in the body and as cookies.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "User already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "User not created"
// @Router       /user/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) error {
	if err := h.limit(r, "register"); err != nil {
		return err
	}

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.service.Register(r.Context(), RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		LastName: req.LastName,
		Username: req.Username,
	})
	if err != nil {
		return err
	}

	h.writeAuthorization(w, result)
	return nil
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthResponse
// @Failure      404 {object} httputil.ErrorResponse "Email or password are incorrect"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /user/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) error {
	if err := h.limit(r, "login"); err != nil {
		return err
	}

	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	logging.GetLoggerFromContext(r.Context()).Info("user logged in", "user_id", result.User.ID)

	h.writeAuthorization(w, result)
	return nil
}

// Refresh rotates the token pair
// @Summary      Refresh tokens
// @Description  Exchange the current refresh token (cookie or body) for a new pair
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token"
// @Success      200 {object} AuthResponse
// @Failure      401 {object} httputil.ErrorResponse "Invalid authorization"
// @Router       /user/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) error {
	result, err := h.service.Refresh(r.Context(), refreshTokenFromRequest(r))
	if err != nil {
		return err
	}

	h.writeAuthorization(w, result)
	return nil
}

// GoogleLogin starts the Google sign-in
// @Summary      Google sign-in
// @Description  Redirect to Google's consent screen
// @Tags         user
// @Success      302
// @Router       /user/google [get]
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) error {
	state := h.state.New()

	c := newCookie(OAuthStateCookie, state, oauthStateTTL, h.cookies.Secure)
	http.SetCookie(w, c)

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
	return nil
}

// GoogleCallback completes the Google sign-in
// @Summary      Google sign-in callback
// @Tags         user
// @Produce      json
// @Param        code  query string true "Authorization code"
// @Param        state query string true "State"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid OAuth state"
// @Failure      401 {object} httputil.ErrorResponse "Invalid authorization code"
// @Router       /user/google/callback [get]
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) error {
	stored, _ := cookieValue(r, OAuthStateCookie)
	if !h.state.Valid(r.URL.Query().Get("state"), stored) {
		return ErrInvalidOAuthState
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return errMissingCode
	}

	ident, err := h.provider.Identify(r.Context(), code)
	if err != nil {
		return err
	}

	result, err := h.service.LoginWithIdentity(r.Context(), ident)
	if err != nil {
		return err
	}

	expired := newCookie(OAuthStateCookie, "", 0, h.cookies.Secure)
	expired.MaxAge = -1
	http.SetCookie(w, expired)

	h.writeAuthorization(w, result)
	return nil
}

// ForgotPassword mails a reset link
// @Summary      Request password reset
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} httputil.MessageResponse
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /user/forgot_password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) error {
	if err := h.limit(r, "forgot_password"); err != nil {
		return err
	}

	var req ForgotPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		return err
	}

	httputil.RespondMessage(w, "Email sent. Go to your email account and finish the operation", http.StatusOK)
	return nil
}

// ResetPassword sets a new password with a reset token
// @Summary      Reset password
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        reset_password_token path string true "Reset token"
// @Param        request body ResetPasswordRequest true "New password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing input or expired token"
// @Failure      401 {object} httputil.ErrorResponse "Invalid authorization"
// @Router       /user/reset_password/{reset_password_token} [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) error {
	var req ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}

	token := strings.TrimSpace(chi.URLParam(r, "reset_password_token"))
	if err := h.service.ResetPassword(r.Context(), token, req.Password); err != nil {
		return err
	}

	httputil.RespondMessage(w, "Password changed successfully", http.StatusOK)
	return nil
}

// Me returns the authenticated user's profile
// @Summary      Current user
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} user.Profile
// @Failure      401 {object} httputil.ErrorResponse "Unauthenticated"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /user/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) error {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return ErrMissingAuth
	}

	u, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		return err
	}

	httputil.RespondJSON(w, u.Profile(), http.StatusOK)
	return nil
}

// UpdateMe updates the authenticated user's profile
// @Summary      Update current user
// @Description  Accepts JSON or multipart/form-data with an optional "photo" file
// @Tags         user
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateUserRequest false "Fields to change"
// @Success      200 {object} user.Profile
// @Failure      400 {object} httputil.ErrorResponse "Nothing to update or email taken"
// @Failure      403 {object} httputil.ErrorResponse "You cannot change your password here"
// @Failure      500 {object} httputil.ErrorResponse "User not updated"
// @Router       /user/me [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) error {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return ErrMissingAuth
	}

	var (
		req   UpdateUserRequest
		photo *storage.Image
		err   error
	)

	if isMultipart(r) {
		req, photo, err = h.parseMultipartUpdate(w, r)
	} else {
		err = httputil.DecodeJSON(r, &req)
	}
	if err != nil {
		return err
	}

	in := UpdateInput{
		PasswordSupplied: req.Password != nil && *req.Password != "",
		Photo:            photo,
	}
	in.Changes, err = req.changes()
	if err != nil {
		if photo != nil {
			h.service.deleteImage(r.Context(), photo.PublicID)
		}
		return err
	}

	u, err := h.service.UpdateCurrentUser(r.Context(), userID, in)
	if err != nil {
		return err
	}

	httputil.RespondJSON(w, u.Profile(), http.StatusOK)
	return nil
}

// DeleteMe removes the authenticated user's account
// @Summary      Delete current user
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.MessageResponse
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /user/me [delete]
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) error {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return ErrMissingAuth
	}

	if err := h.service.DeleteCurrentUser(r.Context(), userID); err != nil {
		return err
	}

	ClearAuthCookies(w, h.cookies.Secure)
	httputil.RespondMessage(w, "User deleted", http.StatusOK)
	return nil
}

// Logout handles user logout
// @Summary      User logout
// @Description  Revoke the presented tokens and clear cookies. Always succeeds.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Optional refresh token"
// @Success      200 {object} httputil.MessageResponse
// @Router       /user/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) error {
	in := LogoutInput{RefreshToken: refreshTokenFromRequest(r)}
	if id, ok := IdentityFromContext(r.Context()); ok {
		in.UserID = id.UserID
		in.AccessToken = id.AccessToken
		in.AccessClaims = id.Claims
	}

	h.service.Logout(r.Context(), in)

	ClearAuthCookies(w, h.cookies.Secure)
	httputil.RespondMessage(w, "You have successfully logged out", http.StatusOK)
	return nil
}

// writeAuthorization sets the token cookies and writes the sign-in payload
func (h *Handler) writeAuthorization(w http.ResponseWriter, result *AuthResult) {
	SetAuthCookies(w, h.cookies, result.Tokens)

	httputil.RespondJSON(w, AuthResponse{
		Message:      "Authenticated successfully",
		User:         result.User.Profile(),
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, http.StatusOK)
}

// limit applies the per-IP limit for purpose. Limiter failures let the
// request through.
func (h *Handler) limit(r *http.Request, purpose string) error {
	if h.rateLimiter == nil {
		return nil
	}

	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return nil
	}
	if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		return errTooManyRequests
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return nil
}

// parseMultipartUpdate reads the form fields and uploads the photo, if any.
// The upload happens last so a malformed form never leaves an orphan image.
func (h *Handler) parseMultipartUpdate(w http.ResponseWriter, r *http.Request) (UpdateUserRequest, *storage.Image, error) {
	var req UpdateUserRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, nil, errPhotoTooLarge
		}
		return req, nil, apperr.Wrap(err, http.StatusBadRequest, apperr.CodeInvalidRequestBody, "Invalid request body")
	}

	form := r.MultipartForm.Value
	req.Email = formString(form, "email")
	req.Name = formString(form, "name")
	req.LastName = formString(form, "last_name")
	req.Username = formString(form, "username")
	req.DateBirth = formString(form, "date_birth")
	req.Theme = formString(form, "theme")
	req.Experience = formString(form, "experience")
	req.Goal = formString(form, "goal")
	req.Password = formString(form, "password")

	if v := formString(form, "weight"); v != nil && *v != "" {
		weight, err := strconv.ParseFloat(*v, 64)
		if err != nil {
			return req, nil, apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "weight must be a number")
		}
		req.Weight = &weight
	}
	if v := formString(form, "rating"); v != nil && *v != "" {
		rating, err := strconv.Atoi(*v)
		if err != nil {
			return req, nil, apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "rating must be an integer")
		}
		req.Rating = &rating
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil, nil
		}
		return req, nil, apperr.Wrap(err, http.StatusBadRequest, apperr.CodeInvalidRequestBody, "Invalid request body")
	}
	defer file.Close()

	photo, err := h.uploadPhoto(r.Context(), file, header)
	if err != nil {
		return req, nil, err
	}
	return req, photo, nil
}

func (h *Handler) uploadPhoto(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*storage.Image, error) {
	if header.Size > maxPhotoSize {
		return nil, errPhotoTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errPhotoType
	}

	if h.images == nil {
		return nil, ErrImageUpload
	}

	img, err := h.images.Upload(ctx, header.Filename, contentType, file)
	if err != nil {
		return nil, ErrImageUpload.WithCause(err)
	}
	return img, nil
}

func (req UpdateUserRequest) changes() (user.Changes, error) {
	c := user.Changes{
		Email:      req.Email,
		Name:       req.Name,
		LastName:   req.LastName,
		Username:   req.Username,
		Theme:      req.Theme,
		Experience: req.Experience,
		Weight:     req.Weight,
		Goal:       req.Goal,
		Rating:     req.Rating,
	}

	if req.DateBirth != nil && *req.DateBirth != "" {
		d, err := time.Parse(user.DateLayout, *req.DateBirth)
		if err != nil {
			return c, apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "date_birth must be formatted as YYYY-MM-DD")
		}
		c.DateBirth = &d
	}

	return c, nil
}

func formString(form map[string][]string, key string) *string {
	vs, ok := form[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// refreshTokenFromRequest reads the refresh token from the JSON body first
// and falls back to the cookie
func refreshTokenFromRequest(r *http.Request) string {
	var req RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err == nil && req.RefreshToken != "" {
		return strings.TrimSpace(req.RefreshToken)
	}

	token, _ := GetRefreshTokenFromCookie(r)
	return token
}

// getClientIP extracts the client IP address from the request. Forwarding
// headers are resolved into RemoteAddr by the router's RealIP middleware and
// are not read here, so a client cannot pick its own rate limit key.
func getClientIP(r *http.Request) string {
	// RemoteAddr format is "IP:port", extract just the IP
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
