package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dsanotes/internal/auth"

	"github.com/google/uuid"
)

// Service maps provider identities onto local users.
type Service struct {
	repo           Repository
	refreshOnLogin bool
	now            func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRefreshOnLogin makes Record overwrite stored profile fields when the
// provider reports different values for an existing subject.
func WithRefreshOnLogin(enabled bool) Option {
	return func(s *Service) {
		s.refreshOnLogin = enabled
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires a Service with the provided repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureUser returns the user for profile.SubjectID, creating it on first sight.
// An existing user is left untouched unless refresh-on-login is enabled.
func (s *Service) EnsureUser(ctx context.Context, profile auth.Profile) (User, bool, error) {
	subjectID := strings.TrimSpace(profile.SubjectID)
	if subjectID == "" {
		return User{}, false, errors.New("subject id is required")
	}

	existing, err := s.repo.FindBySubject(ctx, subjectID)
	switch {
	case err == nil:
		user, err := s.maybeRefresh(ctx, existing, profile)
		return user, false, err
	case !errors.Is(err, ErrNotFound):
		return User{}, false, fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()
	stored, created, err := s.repo.InsertIfAbsent(ctx, User{
		ID:         uuid.New(),
		SubjectID:  subjectID,
		Name:       profile.Name,
		Email:      profile.Email,
		PictureURL: profile.PictureURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return User{}, false, fmt.Errorf("create user: %w", err)
	}
	if !created {
		stored, err = s.maybeRefresh(ctx, stored, profile)
		if err != nil {
			return User{}, false, err
		}
	}
	return stored, created, nil
}

// Record satisfies auth.UserStore.
func (s *Service) Record(ctx context.Context, profile auth.Profile) (bool, error) {
	_, created, err := s.EnsureUser(ctx, profile)
	return created, err
}

// RefreshProfile overwrites the stored profile fields of an existing user.
func (s *Service) RefreshProfile(ctx context.Context, profile auth.Profile) (User, error) {
	user, err := s.repo.UpdateProfile(ctx, profile.SubjectID, profile.Name, profile.Email, profile.PictureURL, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, err
		}
		return User{}, fmt.Errorf("refresh user: %w", err)
	}
	return user, nil
}

// FindBySubject returns the local user for a provider subject id.
func (s *Service) FindBySubject(ctx context.Context, subjectID string) (User, error) {
	return s.repo.FindBySubject(ctx, subjectID)
}

func (s *Service) maybeRefresh(ctx context.Context, user User, profile auth.Profile) (User, error) {
	if !s.refreshOnLogin || sameProfile(user, profile) {
		return user, nil
	}
	return s.RefreshProfile(ctx, profile)
}

func sameProfile(user User, profile auth.Profile) bool {
	return user.Name == profile.Name &&
		user.Email == profile.Email &&
		user.PictureURL == profile.PictureURL
}
