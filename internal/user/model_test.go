package user

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestMerge_FieldByFieldFallback(t *testing.T) {
	stored := User{
		ID:       uuid.New(),
		Email:    "a@x.com",
		Name:     "Ana",
		LastName: "Diaz",
		Theme:    "dark",
		Weight:   ptr(70.5),
		Rating:   ptr(4),
	}

	merged := stored.Merge(Changes{
		Name:   ptr("Ana Maria"),
		Theme:  ptr(""), // empty means not supplied
		Weight: ptr(68.0),
	})

	assert.Equal(t, stored.ID, merged.ID)
	assert.Equal(t, "a@x.com", merged.Email)
	assert.Equal(t, "Ana Maria", merged.Name)
	assert.Equal(t, "Diaz", merged.LastName)
	assert.Equal(t, "dark", merged.Theme)
	assert.Equal(t, 68.0, *merged.Weight)
	assert.Equal(t, 4, *merged.Rating)
	assert.Equal(t, "Ana", stored.Name, "stored value is not mutated")
}

func TestChanges_IsEmpty(t *testing.T) {
	assert.True(t, Changes{}.IsEmpty())
	assert.False(t, Changes{Goal: ptr("lose weight")}.IsEmpty())
}

func TestProfile_StripsIDAndPassword(t *testing.T) {
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	u := User{ID: uuid.New(), Email: "a@x.com", PasswordHash: "hash", DateBirth: &birth}

	raw, err := json.Marshal(u.Profile())
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.NotContains(t, body, "id_user")
	assert.NotContains(t, body, "password")
	assert.Equal(t, "1990-05-17", body["date_birth"])
	assert.Equal(t, "a@x.com", body["email"])
}
