package exercise

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/fitness-api/internal/apperr"
	"github.com/redmonkez12/fitness-api/internal/database"
)

var ErrNotFound = errors.New("exercise not found")

// Repository handles exercise persistence. Every query is scoped to the
// owning user.
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, e *Exercise) (int64, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.NewInsert().
		Model(mapModelToDB(e)).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("create exercise: %w", err))
	}

	return rowsAffected(result)
}

// List returns the user's exercises matching f. Sort columns must already
// be validated.
func (r *Repository) List(ctx context.Context, f Filter) ([]*Exercise, error) {
	var rows []database.Exercise

	q := r.db.NewSelect().
		Model(&rows).
		Where("id_user = ?", f.UserID)

	if f.Intensity != nil {
		q = q.Where("intensity = ?", *f.Intensity)
	}
	if f.IsFavorite != nil {
		q = q.Where("is_favorite = ?", *f.IsFavorite)
	}
	if f.SortBy != "" && sortColumns[f.SortBy] {
		order := "ASC"
		if f.Order == "DESC" {
			order = "DESC"
		}
		q = q.OrderExpr("? "+order, bun.Ident(f.SortBy))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, apperr.Database(fmt.Errorf("list exercises: %w", err))
	}

	out := make([]*Exercise, 0, len(rows))
	for i := range rows {
		out = append(out, mapDBToModel(&rows[i]))
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, userID, id uuid.UUID) (*Exercise, error) {
	row := new(database.Exercise)
	err := r.db.NewSelect().
		Model(row).
		Where("id_exercise = ?", id).
		Where("id_user = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Database(fmt.Errorf("get exercise: %w", err))
	}

	return mapDBToModel(row), nil
}

// Update writes the mutable columns of e and returns the rows affected
func (r *Repository) Update(ctx context.Context, e *Exercise) (int64, error) {
	result, err := r.db.NewUpdate().
		Model(mapModelToDB(e)).
		Column("exercise_name", "intensity", "description", "time_after_exercise", "is_favorite").
		WherePK().
		Where("id_user = ?", e.UserID).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("update exercise: %w", err))
	}

	return rowsAffected(result)
}

func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Exercise)(nil)).
		Where("id_exercise = ?", id).
		Where("id_user = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("delete exercise: %w", err))
	}

	return rowsAffected(result)
}

func (r *Repository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Exercise)(nil)).
		Where("id_user = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("delete user exercises: %w", err))
	}

	return rowsAffected(result)
}

// DeleteUserData removes a user's exercises as part of account deletion
func DeleteUserData(ctx context.Context, db bun.IDB, userID uuid.UUID) error {
	_, err := NewRepository(db).DeleteByUserID(ctx, userID)
	return err
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("rows affected: %w", err))
	}
	return n, nil
}

func mapDBToModel(row *database.Exercise) *Exercise {
	return &Exercise{
		ID:                row.ID,
		UserID:            row.UserID,
		Name:              row.Name,
		Intensity:         row.Intensity,
		Description:       row.Description,
		TimeAfterExercise: row.TimeAfterExercise,
		IsFavorite:        row.IsFavorite,
		CreatedAt:         row.CreatedAt,
	}
}

func mapModelToDB(e *Exercise) *database.Exercise {
	return &database.Exercise{
		ID:                e.ID,
		UserID:            e.UserID,
		Name:              e.Name,
		Intensity:         e.Intensity,
		Description:       e.Description,
		TimeAfterExercise: e.TimeAfterExercise,
		IsFavorite:        e.IsFavorite,
		CreatedAt:         e.CreatedAt,
	}
}
