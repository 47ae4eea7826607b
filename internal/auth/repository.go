package auth

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

var ErrAuthRecordNotFound = errors.New("auth record not found")

// AuthRecord holds the per-user token state: the current refresh token and
// the outstanding password reset, if any
type AuthRecord struct {
	UserID                       uuid.UUID
	RefreshToken                 *string
	ResetPasswordToken           *string
	ResetPasswordTokenExpiration *time.Time
}

// Repository handles auth record persistence
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create inserts an empty auth record for the user
func (r *Repository) Create(ctx context.Context, rec *AuthRecord) (int64, error) {
	result, err := r.db.NewInsert().
		Model(mapModelToDBAuth(rec)).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("create auth record: %w", err))
	}

	return rowsAffected(result)
}

// GetByUserID retrieves the auth record of a user
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*AuthRecord, error) {
	dbAuth := new(database.Auth)
	err := r.db.NewSelect().
		Model(dbAuth).
		Where("id_user = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAuthRecordNotFound
		}
		return nil, apperr.Database(fmt.Errorf("get auth record: %w", err))
	}

	return mapDBAuthToModel(dbAuth), nil
}

// Update writes every column of the record
func (r *Repository) Update(ctx context.Context, rec *AuthRecord) (int64, error) {
	result, err := r.db.NewUpdate().
		Model(mapModelToDBAuth(rec)).
		Column("refresh_token", "reset_password_token", "reset_password_token_expiration").
		WherePK().
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("update auth record: %w", err))
	}

	return rowsAffected(result)
}

// SetRefreshToken replaces the stored refresh token. A nil token clears it.
func (r *Repository) SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) (int64, error) {
	result, err := r.db.NewUpdate().
		Model((*database.Auth)(nil)).
		Set("refresh_token = ?", token).
		Where("id_user = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("set refresh token: %w", err))
	}

	return rowsAffected(result)
}

// SetResetToken stores a password reset token with its expiration
func (r *Repository) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (int64, error) {
	result, err := r.db.NewUpdate().
		Model((*database.Auth)(nil)).
		Set("reset_password_token = ?", token).
		Set("reset_password_token_expiration = ?", expiresAt).
		Where("id_user = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("set reset token: %w", err))
	}

	return rowsAffected(result)
}

func (r *Repository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Auth)(nil)).
		Where("id_user = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("delete auth record: %w", err))
	}

	return rowsAffected(result)
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("rows affected: %w", err))
	}
	return n, nil
}

func mapDBAuthToModel(a *database.Auth) *AuthRecord {
	return &AuthRecord{
		UserID:                       a.UserID,
		RefreshToken:                 a.RefreshToken,
		ResetPasswordToken:           a.ResetPasswordToken,
		ResetPasswordTokenExpiration: a.ResetPasswordTokenExpiration,
	}
}

func mapModelToDBAuth(rec *AuthRecord) *database.Auth {
	return &database.Auth{
		UserID:                       rec.UserID,
		RefreshToken:                 rec.RefreshToken,
		ResetPasswordToken:           rec.ResetPasswordToken,
		ResetPasswordTokenExpiration: rec.ResetPasswordTokenExpiration,
	}
}
