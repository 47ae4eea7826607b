package user

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

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository handles user data persistence
type Repository struct {
	db bun.IDB
}

// NewRepository binds the repository to a pool or a transaction
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the number of rows written
func (r *Repository) Create(ctx context.Context, u *User) (int64, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.NewInsert().
		Model(mapModelToDBUser(u)).
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, apperr.Database(fmt.Errorf("create user: %w", err))
	}

	return rowsAffected(result)
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Database(fmt.Errorf("get user by email: %w", err))
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id_user = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Database(fmt.Errorf("get user by id: %w", err))
	}

	return mapDBUserToModel(dbUser), nil
}

// Update writes every profile column of u and returns the rows affected.
// The password column is left alone.
func (r *Repository) Update(ctx context.Context, u *User) (int64, error) {
	result, err := r.db.NewUpdate().
		Model(mapModelToDBUser(u)).
		Column("email", "name", "last_name", "username", "public_id_profile_photo",
			"url_profile_photo", "date_birth", "theme", "experience", "weight", "goal", "rating").
		WherePK().
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, apperr.Database(fmt.Errorf("update user: %w", err))
	}

	return rowsAffected(result)
}

// UpdatePassword updates a user's password hash and returns the rows affected
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) (int64, error) {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password = ?", passwordHash).
		Where("id_user = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("update password: %w", err))
	}

	return rowsAffected(result)
}

// Delete removes the user row
func (r *Repository) Delete(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id_user = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Database(fmt.Errorf("delete user: %w", err))
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

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                   dbu.ID,
		Email:                dbu.Email,
		Name:                 dbu.Name,
		LastName:             dbu.LastName,
		Username:             dbu.Username,
		PasswordHash:         dbu.Password,
		PublicIDProfilePhoto: dbu.PublicIDProfilePhoto,
		URLProfilePhoto:      dbu.URLProfilePhoto,
		DateBirth:            dbu.DateBirth,
		Theme:                dbu.Theme,
		Experience:           dbu.Experience,
		Weight:               dbu.Weight,
		Goal:                 dbu.Goal,
		Rating:               dbu.Rating,
		CreatedAt:            dbu.CreatedAt,
	}
}

func mapModelToDBUser(u *User) *database.User {
	return &database.User{
		ID:                   u.ID,
		Email:                u.Email,
		Name:                 u.Name,
		LastName:             u.LastName,
		Username:             u.Username,
		Password:             u.PasswordHash,
		PublicIDProfilePhoto: u.PublicIDProfilePhoto,
		URLProfilePhoto:      u.URLProfilePhoto,
		DateBirth:            u.DateBirth,
		Theme:                u.Theme,
		Experience:           u.Experience,
		Weight:               u.Weight,
		Goal:                 u.Goal,
		Rating:               u.Rating,
		CreatedAt:            u.CreatedAt,
	}
}
