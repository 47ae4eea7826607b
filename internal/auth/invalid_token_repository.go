package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/fitness-api/internal/apperr"
	"github.com/redmonkez12/fitness-api/internal/database"
)

// InvalidTokenRepository persists revoked tokens. Rows are keyed by the
// (user, raw token) pair.
type InvalidTokenRepository struct {
	db bun.IDB
}

func NewInvalidTokenRepository(db bun.IDB) *InvalidTokenRepository {
	return &InvalidTokenRepository{db: db}
}

func (r *InvalidTokenRepository) Create(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := r.db.NewInsert().
		Model(&database.InvalidToken{
			ID:        uuid.New(),
			UserID:    userID,
			Token:     token,
			CreatedAt: time.Now().UTC(),
		}).
		Exec(ctx)
	if err != nil {
		return apperr.Database(fmt.Errorf("create invalid token: %w", err))
	}
	return nil
}

func (r *InvalidTokenRepository) Exists(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.InvalidToken)(nil)).
		Where("id_user = ?", userID).
		Where("token = ?", token).
		Exists(ctx)
	if err != nil {
		return false, apperr.Database(fmt.Errorf("check invalid token: %w", err))
	}
	return exists, nil
}

func (r *InvalidTokenRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.InvalidToken)(nil)).
		Where("id_user = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("delete invalid tokens: %w", err))
	}

	return rowsAffected(result)
}
