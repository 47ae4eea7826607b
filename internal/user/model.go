package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                   uuid.UUID  `json:"-"`
	Email                string     `json:"email"`
	Name                 string     `json:"name"`
	LastName             string     `json:"last_name"`
	Username             string     `json:"username"`
	PasswordHash         string     `json:"-"` // Never expose password hash in JSON
	PublicIDProfilePhoto string     `json:"public_id_profile_photo"`
	URLProfilePhoto      string     `json:"url_profile_photo"`
	DateBirth            *time.Time `json:"date_birth"`
	Theme                string     `json:"theme"`
	Experience           string     `json:"experience"`
	Weight               *float64   `json:"weight"`
	Goal                 string     `json:"goal"`
	Rating               *int       `json:"rating"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Profile is what clients see of a user: no id, no password
type Profile struct {
	Email                string   `json:"email"`
	Name                 string   `json:"name"`
	LastName             string   `json:"last_name"`
	Username             string   `json:"username"`
	PublicIDProfilePhoto string   `json:"public_id_profile_photo"`
	URLProfilePhoto      string   `json:"url_profile_photo"`
	DateBirth            *string  `json:"date_birth"`
	Theme                string   `json:"theme"`
	Experience           string   `json:"experience"`
	Weight               *float64 `json:"weight"`
	Goal                 string   `json:"goal"`
	Rating               *int     `json:"rating"`
}

// DateLayout is the wire format of date_birth
const DateLayout = "2006-01-02"

func (u *User) Profile() Profile {
	p := Profile{
		Email:                u.Email,
		Name:                 u.Name,
		LastName:             u.LastName,
		Username:             u.Username,
		PublicIDProfilePhoto: u.PublicIDProfilePhoto,
		URLProfilePhoto:      u.URLProfilePhoto,
		Theme:                u.Theme,
		Experience:           u.Experience,
		Weight:               u.Weight,
		Goal:                 u.Goal,
		Rating:               u.Rating,
	}
	if u.DateBirth != nil {
		d := u.DateBirth.Format(DateLayout)
		p.DateBirth = &d
	}
	return p
}

// Changes carries the optional fields of a profile update. A nil field keeps
// the stored value.
type Changes struct {
	Email      *string
	Name       *string
	LastName   *string
	Username   *string
	DateBirth  *time.Time
	Theme      *string
	Experience *string
	Weight     *float64
	Goal       *string
	Rating     *int

	PublicIDProfilePhoto *string
	URLProfilePhoto      *string
}

// IsEmpty reports whether no field would change
func (c Changes) IsEmpty() bool {
	return c == Changes{}
}

// Merge returns a copy of u with every supplied field replaced, field by field.
// Empty strings count as "not supplied".
func (u User) Merge(c Changes) User {
	setString(&u.Email, c.Email)
	setString(&u.Name, c.Name)
	setString(&u.LastName, c.LastName)
	setString(&u.Username, c.Username)
	setString(&u.Theme, c.Theme)
	setString(&u.Experience, c.Experience)
	setString(&u.Goal, c.Goal)
	setString(&u.PublicIDProfilePhoto, c.PublicIDProfilePhoto)
	setString(&u.URLProfilePhoto, c.URLProfilePhoto)
	if c.DateBirth != nil {
		u.DateBirth = c.DateBirth
	}
	if c.Weight != nil {
		u.Weight = c.Weight
	}
	if c.Rating != nil {
		u.Rating = c.Rating
	}
	return u
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}
