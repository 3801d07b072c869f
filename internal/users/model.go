package users

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no user exists for a subject id.
var ErrNotFound = errors.New("user not found")

// User is a locally known identity, keyed by the provider subject id.
type User struct {
	ID         uuid.UUID `json:"id"`
	SubjectID  string    `json:"uid"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	PictureURL string    `json:"picture"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
