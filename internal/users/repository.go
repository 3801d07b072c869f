package users

import (
	"context"
	"time"
)

// Repository persists users. Every implementation enforces uniqueness of SubjectID.
type Repository interface {
	// FindBySubject returns ErrNotFound when the subject is unknown.
	FindBySubject(ctx context.Context, subjectID string) (User, error)
	// InsertIfAbsent stores user unless its subject already exists. It returns
	// the stored record and whether this call created it. Losing a race on the
	// same subject is reported as (existing, false, nil).
	InsertIfAbsent(ctx context.Context, user User) (User, bool, error)
	// UpdateProfile overwrites the provider-supplied fields of an existing user.
	UpdateProfile(ctx context.Context, subjectID, name, email, pictureURL string, updatedAt time.Time) (User, error)
}
