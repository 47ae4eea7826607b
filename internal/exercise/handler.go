package exercise

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/fitness-api/internal/apperr"
	"github.com/redmonkez12/fitness-api/internal/auth"
	"github.com/redmonkez12/fitness-api/internal/httputil"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the exercise endpoints. The caller puts them behind the gate.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", httputil.Handle(h.Create))
	r.Get("/", httputil.Handle(h.List))
	r.Get("/{id_exercise}", httputil.Handle(h.Get))
	r.Put("/{id_exercise}", httputil.Handle(h.Update))
	r.Delete("/{id_exercise}", httputil.Handle(h.Delete))
}

type CreateRequest struct {
	Name              string `json:"exercise_name"`
	Intensity         int    `json:"intensity"`
	Description       string `json:"description"`
	TimeAfterExercise string `json:"time_after_exercise"`
	IsFavorite        bool   `json:"is_favorite"`
}

type UpdateRequest struct {
	Name              *string `json:"exercise_name"`
	Intensity         *int    `json:"intensity"`
	Description       *string `json:"description"`
	TimeAfterExercise *string `json:"time_after_exercise"`
	IsFavorite        *bool   `json:"is_favorite"`
}

// Create adds an exercise
// @Summary      Create exercise
// @Tags         exercise
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateRequest true "Exercise"
// @Success      201 {object} Exercise
// @Failure      400 {object} httputil.ErrorResponse "Invalid intensity or name"
// @Router       /exercise [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return auth.ErrMissingAuth
	}

	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}

	e, err := h.service.Create(r.Context(), &Exercise{
		UserID:            userID,
		Name:              req.Name,
		Intensity:         req.Intensity,
		Description:       req.Description,
		TimeAfterExercise: req.TimeAfterExercise,
		IsFavorite:        req.IsFavorite,
	})
	if err != nil {
		return err
	}

	httputil.RespondJSON(w, e, http.StatusCreated)
	return nil
}

// List returns the caller's exercises
// @Summary      List exercises
// @Tags         exercise
// @Produce      json
// @Security     BearerAuth
// @Param        intensity   query int    false "1, 2 or 3"
// @Param        is_favorite query bool   false "Only favorites"
// @Param        sort_by     query string false "exercise_name, intensity, created_at or is_favorite"
// @Param        order       query string false "ASC or DESC"
// @Success      200 {array} Exercise
// @Failure      400 {object} httputil.ErrorResponse "Invalid filter"
// @Router       /exercise [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) error {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return auth.ErrMissingAuth
	}

	q := r.URL.Query()
	f := Filter{
		UserID: userID,
		SortBy: q.Get("sort_by"),
		Order:  q.Get("order"),
	}

	if v := q.Get("intensity"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return ErrInvalidIntensity
		}
		f.Intensity = &i
	}
	if v := q.Get("is_favorite"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "is_favorite must be true or false")
		}
		f.IsFavorite = &b
	}

	exercises, err := h.service.List(r.Context(), f)
	if err != nil {
		return err
	}

	httputil.RespondJSON(w, exercises, http.StatusOK)
	return nil
}

// Get returns one exercise
// @Summary      Get exercise
// @Tags         exercise
// @Produce      json
// @Security     BearerAuth
// @Param        id_exercise path string true "Exercise id"
// @Success      200 {object} Exercise
// @Failure      404 {object} httputil.ErrorResponse "Exercise not found"
// @Router       /exercise/{id_exercise} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) error {
	userID, id, err := ids(r)
	if err != nil {
		return err
	}

	e, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		return err
	}

	httputil.RespondJSON(w, e, http.StatusOK)
	return nil
}

// Update changes the supplied fields of an exercise
// @Summary      Update exercise
// @Tags         exercise
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id_exercise path string true "Exercise id"
// @Param        request body UpdateRequest true "Fields to change"
// @Success      200 {object} Exercise
// @Failure      404 {object} httputil.ErrorResponse "Exercise not found"
// @Failure      500 {object} httputil.ErrorResponse "Exercise not updated"
// @Router       /exercise/{id_exercise} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) error {
	userID, id, err := ids(r)
	if err != nil {
		return err
	}

	var req UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}

	e, err := h.service.Update(r.Context(), userID, id, Changes{
		Name:              req.Name,
		Intensity:         req.Intensity,
		Description:       req.Description,
		TimeAfterExercise: req.TimeAfterExercise,
		IsFavorite:        req.IsFavorite,
	})
	if err != nil {
		return err
	}

	httputil.RespondJSON(w, e, http.StatusOK)
	return nil
}

// Delete removes an exercise
// @Summary      Delete exercise
// @Tags         exercise
// @Produce      json
// @Security     BearerAuth
// @Param        id_exercise path string true "Exercise id"
// @Success      200 {object} httputil.MessageResponse
// @Failure      404 {object} httputil.ErrorResponse "Exercise not found"
// @Router       /exercise/{id_exercise} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) error {
	userID, id, err := ids(r)
	if err != nil {
		return err
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		return err
	}

	httputil.RespondMessage(w, "Exercise deleted", http.StatusOK)
	return nil
}

// ids reads the caller and the path id. A malformed id cannot name an
// existing exercise.
func ids(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, auth.ErrMissingAuth
	}

	id, err := uuid.Parse(chi.URLParam(r, "id_exercise"))
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrExerciseNotFound
	}
	return userID, id, nil
}
