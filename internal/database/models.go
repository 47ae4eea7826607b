package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Row models. Every value is set by the application (ids, timestamps) so
// inserts never depend on column defaults.

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID                   uuid.UUID  `bun:"id_user,pk,type:uuid"`
	Email                string     `bun:"email,notnull"`
	Name                 string     `bun:"name"`
	LastName             string     `bun:"last_name"`
	Username             string     `bun:"username"`
	Password             string     `bun:"password,notnull"`
	PublicIDProfilePhoto string     `bun:"public_id_profile_photo"`
	URLProfilePhoto      string     `bun:"url_profile_photo"`
	DateBirth            *time.Time `bun:"date_birth,type:date"`
	Theme                string     `bun:"theme"`
	Experience           string     `bun:"experience"`
	Weight               *float64   `bun:"weight"`
	Goal                 string     `bun:"goal"`
	Rating               *int       `bun:"rating"`
	CreatedAt            time.Time  `bun:"created_at,notnull"`
}

type Auth struct {
	bun.BaseModel `bun:"table:auth"`

	UserID                       uuid.UUID  `bun:"id_user,pk,type:uuid"`
	RefreshToken                 *string    `bun:"refresh_token"`
	ResetPasswordToken           *string    `bun:"reset_password_token"`
	ResetPasswordTokenExpiration *time.Time `bun:"reset_password_token_expiration"`
}

type InvalidToken struct {
	bun.BaseModel `bun:"table:invalid_token"`

	ID        uuid.UUID `bun:"id_invalid_token,pk,type:uuid"`
	UserID    uuid.UUID `bun:"id_user,type:uuid"`
	Token     string    `bun:"token,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type Feedback struct {
	bun.BaseModel `bun:"table:feedback"`

	ID        uuid.UUID `bun:"id_feedback,pk,type:uuid"`
	UserID    uuid.UUID `bun:"id_user,type:uuid"`
	Comment   string    `bun:"comment,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type Exercise struct {
	bun.BaseModel `bun:"table:exercise"`

	ID                uuid.UUID `bun:"id_exercise,pk,type:uuid"`
	UserID            uuid.UUID `bun:"id_user,type:uuid"`
	Name              string    `bun:"exercise_name,notnull"`
	Intensity         int       `bun:"intensity,notnull"`
	Description       string    `bun:"description"`
	TimeAfterExercise string    `bun:"time_after_exercise"`
	IsFavorite        bool      `bun:"is_favorite,notnull"`
	CreatedAt         time.Time `bun:"created_at,notnull"`
}
