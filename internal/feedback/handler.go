package feedback

import (
	"context"
	"net/http"
	"strings"

	"github.com/redmonkez12/fitness-api/internal/apperr"
	"github.com/redmonkez12/fitness-api/internal/auth"
	"github.com/redmonkez12/fitness-api/internal/httputil"
	"github.com/redmonkez12/fitness-api/internal/logging"
)

var (
	errMissingComment = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "Any comment was provided")
	errNotStored      = apperr.New(http.StatusInternalServerError, apperr.CodeDatabase, "Something went wrong with the database")
)

type creator interface {
	Create(ctx context.Context, f *Feedback) (int64, error)
}

type Handler struct {
	repo creator
}

func NewHandler(repo creator) *Handler {
	return &Handler{repo: repo}
}

type SendRequest struct {
	Comment string `json:"comment"`
}

// Send stores feedback about the app
// @Summary      Send feedback
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SendRequest true "Comment"
// @Success      201 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing comment"
// @Failure      500 {object} httputil.ErrorResponse "Database error"
// @Router       /user/feedback [post]
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return auth.ErrMissingAuth
	}

	var req SendRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}

	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return errMissingComment
	}

	n, err := h.repo.Create(r.Context(), &Feedback{UserID: userID, Comment: comment})
	if err != nil {
		return err
	}
	if n == 0 {
		return errNotStored
	}

	logging.GetLoggerFromContext(r.Context()).Info("feedback received", "user_id", userID)

	httputil.RespondMessage(w, "Feedback sent", http.StatusCreated)
	return nil
}
