package users

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository stores users in an in-process map, ideal for local development or tests.
type InMemoryRepository struct {
	mu   sync.RWMutex
	data map[string]User
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{data: make(map[string]User)}
}

// FindBySubject returns the user for subjectID.
func (r *InMemoryRepository) FindBySubject(_ context.Context, subjectID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.data[subjectID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

// InsertIfAbsent stores user unless the subject is already present.
func (r *InMemoryRepository) InsertIfAbsent(_ context.Context, user User) (User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.data[user.SubjectID]; ok {
		return existing, false, nil
	}
	r.data[user.SubjectID] = user
	return user, true, nil
}

// UpdateProfile overwrites the profile fields of an existing user.
func (r *InMemoryRepository) UpdateProfile(_ context.Context, subjectID, name, email, pictureURL string, updatedAt time.Time) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.data[subjectID]
	if !ok {
		return User{}, ErrNotFound
	}
	user.Name = name
	user.Email = email
	user.PictureURL = pictureURL
	user.UpdatedAt = updatedAt
	r.data[subjectID] = user
	return user, nil
}

// Count returns the number of stored users.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
