package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/fitness-api/internal/apperr"
	"github.com/redmonkez12/fitness-api/internal/database"
)

type Feedback struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Comment   string
	CreatedAt time.Time
}

type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create stores the feedback and returns the rows written
func (r *Repository) Create(ctx context.Context, f *Feedback) (int64, error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.NewInsert().
		Model(&database.Feedback{
			ID:        f.ID,
			UserID:    f.UserID,
			Comment:   f.Comment,
			CreatedAt: f.CreatedAt,
		}).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("create feedback: %w", err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("rows affected: %w", err))
	}
	return n, nil
}

func (r *Repository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Feedback)(nil)).
		Where("id_user = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("delete feedback: %w", err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("rows affected: %w", err))
	}
	return n, nil
}

// DeleteUserData removes a user's feedback as part of account deletion
func DeleteUserData(ctx context.Context, db bun.IDB, userID uuid.UUID) error {
	_, err := NewRepository(db).DeleteByUserID(ctx, userID)
	return err
}
