package exercise

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/fitness-api/internal/apperr"
)

var (
	ErrExerciseNotFound   = apperr.New(http.StatusNotFound, apperr.CodeNotFound, "Exercise not found")
	ErrExerciseNotCreated = apperr.New(http.StatusInternalServerError, apperr.CodeInternal, "Exercise not created")
	ErrExerciseNotUpdated = apperr.New(http.StatusInternalServerError, apperr.CodeInternal, "Exercise not updated")
	ErrInvalidIntensity   = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "Intensity must be 1, 2 or 3")
	ErrNameRequired       = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "Exercise name is required")
	ErrNothingToUpdate    = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "You must update, at least, one attribute")
	ErrInvalidSort        = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "sort_by must be one of exercise_name, intensity, created_at, is_favorite")
	ErrInvalidOrder       = apperr.New(http.StatusBadRequest, apperr.CodeBadRequest, "order must be ASC or DESC")
)

type store interface {
	Create(ctx context.Context, e *Exercise) (int64, error)
	List(ctx context.Context, f Filter) ([]*Exercise, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*Exercise, error)
	Update(ctx context.Context, e *Exercise) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) (int64, error)
}

type Service struct {
	repo store
}

func NewService(repo store) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, e *Exercise) (*Exercise, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return nil, ErrNameRequired
	}
	if !validIntensity(e.Intensity) {
		return nil, ErrInvalidIntensity
	}

	n, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, ErrExerciseNotCreated
	}
	return e, nil
}

// List validates the filter and returns the matching exercises
func (s *Service) List(ctx context.Context, f Filter) ([]*Exercise, error) {
	f.Order = strings.ToUpper(f.Order)
	if f.SortBy != "" && !sortColumns[f.SortBy] {
		return nil, ErrInvalidSort
	}
	if f.Order != "" && f.Order != "ASC" && f.Order != "DESC" {
		return nil, ErrInvalidOrder
	}
	if f.Intensity != nil && !validIntensity(*f.Intensity) {
		return nil, ErrInvalidIntensity
	}

	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Exercise, error) {
	e, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, c Changes) (*Exercise, error) {
	if c.IsEmpty() {
		return nil, ErrNothingToUpdate
	}
	if c.Intensity != nil && !validIntensity(*c.Intensity) {
		return nil, ErrInvalidIntensity
	}

	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	merged := current.Merge(c)
	n, err := s.repo.Update(ctx, &merged)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrExerciseNotUpdated
	}
	return &merged, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	n, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func validIntensity(i int) bool {
	return i >= MinIntensity && i <= MaxIntensity
}
