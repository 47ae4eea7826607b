package auth

import (
	"net/http"

	"github.com/redmonkez12/fitness-api/internal/apperr"
)

// Token verification
var (
	ErrInvalidToken = apperr.New(http.StatusUnauthorized, apperr.CodeInvalidToken, "Invalid token")
	ErrExpiredToken = apperr.New(http.StatusUnauthorized, apperr.CodeTokenExpired, "Token has expired")
	ErrTokenRevoked = apperr.New(http.StatusUnauthorized, apperr.CodeTokenRevoked, "Unauthenticated")
	ErrMissingAuth  = apperr.New(http.StatusUnauthorized, apperr.CodeMissingAuth, "Unauthenticated")
	ErrAuthHeader   = apperr.New(http.StatusUnauthorized, apperr.CodeInvalidAuthHeader, "Invalid authorization header format")
)

// Flow outcomes
var (
	ErrUserExists           = apperr.New(http.StatusBadRequest, apperr.CodeUserExists, "User already exists")
	ErrUserNotCreated       = apperr.New(http.StatusInternalServerError, apperr.CodeInternal, "Something went wrong. User not created")
	ErrInvalidCredentials   = apperr.New(http.StatusNotFound, apperr.CodeInvalidCredentials, "Email or password are incorrect")
	ErrCredentialsRequired  = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "Email and password are required")
	ErrUserNotFound         = apperr.New(http.StatusNotFound, apperr.CodeUserNotFound, "User not found")
	ErrAuthNotFound         = apperr.New(http.StatusNotFound, apperr.CodeAuthNotFound, "Authentication not found")
	ErrTryAgainLater        = apperr.New(http.StatusInternalServerError, apperr.CodeInternal, "Something went wrong. Try again later")
	ErrMissingResetToken    = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "Any verification code was provided")
	ErrMissingPassword      = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "Any password was provided")
	ErrInvalidAuthorization = apperr.New(http.StatusUnauthorized, apperr.CodeUnauthorized, "Invalid authorization")
	ErrResetTokenExpired    = apperr.New(http.StatusBadRequest, apperr.CodeTokenExpired, "Your verification token has expired")
	ErrNothingToUpdate      = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "You must update, at least, one attribute")
	ErrPasswordChange       = apperr.New(http.StatusForbidden, apperr.CodeForbidden, "You cannot change your password here")
	ErrEmailTaken           = apperr.New(http.StatusBadRequest, apperr.CodeUserExists, "There is already a user with this email address")
	ErrUserNotUpdated       = apperr.New(http.StatusInternalServerError, apperr.CodeInternal, "User not updated")
	ErrUserNotDeleted       = apperr.New(http.StatusInternalServerError, apperr.CodeInternal, "User not deleted")
	ErrImageUpload          = apperr.New(http.StatusInternalServerError, apperr.CodeInternal, "Image could not be uploaded")
	ErrInvalidOAuthState    = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "Invalid OAuth state")
	ErrOAuthExchange        = apperr.New(http.StatusUnauthorized, apperr.CodeUnauthorized, "Invalid authorization code")
)
