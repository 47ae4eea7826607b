package exercise

import (
	"time"

	"github.com/google/uuid"
)

// Intensity bounds: 1 low, 2 mid, 3 high
const (
	MinIntensity = 1
	MaxIntensity = 3
)

type Exercise struct {
	ID                uuid.UUID `json:"id_exercise"`
	UserID            uuid.UUID `json:"-"`
	Name              string    `json:"exercise_name"`
	Intensity         int       `json:"intensity"`
	Description       string    `json:"description"`
	TimeAfterExercise string    `json:"time_after_exercise"`
	IsFavorite        bool      `json:"is_favorite"`
	CreatedAt         time.Time `json:"created_at"`
}

// Changes carries the optional fields of an update
type Changes struct {
	Name              *string
	Intensity         *int
	Description       *string
	TimeAfterExercise *string
	IsFavorite        *bool
}

func (c Changes) IsEmpty() bool {
	return c == Changes{}
}

// Merge returns a copy of e with every supplied field replaced
func (e Exercise) Merge(c Changes) Exercise {
	if c.Name != nil && *c.Name != "" {
		e.Name = *c.Name
	}
	if c.Intensity != nil {
		e.Intensity = *c.Intensity
	}
	if c.Description != nil {
		e.Description = *c.Description
	}
	if c.TimeAfterExercise != nil {
		e.TimeAfterExercise = *c.TimeAfterExercise
	}
	if c.IsFavorite != nil {
		e.IsFavorite = *c.IsFavorite
	}
	return e
}

// Sortable columns of a listing
var sortColumns = map[string]bool{
	"exercise_name": true,
	"intensity":     true,
	"created_at":    true,
	"is_favorite":   true,
}

// Filter narrows a listing to one user's exercises
type Filter struct {
	UserID     uuid.UUID
	Intensity  *int
	IsFavorite *bool
	SortBy     string
	Order      string // ASC or DESC
}
