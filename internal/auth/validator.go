package auth

import (
	"context"
	"errors"
	"fmt"
)

// ProfileFetcher resolves the profile behind an access token.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (Profile, error)
}

// SessionValidator recovers the caller's identity by asking the provider, on every
// call, whether the stored access token is still accepted. Nothing is cached.
type SessionValidator struct {
	fetcher ProfileFetcher
}

// NewSessionValidator creates a SessionValidator.
func NewSessionValidator(fetcher ProfileFetcher) *SessionValidator {
	return &SessionValidator{fetcher: fetcher}
}

// Validate returns the profile for accessToken. A missing token, a token the
// provider rejects, or a subject that differs from subjectHint all yield
// ErrUnauthorized. Provider outages are returned as *UpstreamAuthError.
func (v *SessionValidator) Validate(ctx context.Context, accessToken, subjectHint string) (Profile, error) {
	if accessToken == "" {
		return Profile{}, fmt.Errorf("%w: missing credential", ErrUnauthorized)
	}

	profile, err := v.fetcher.FetchProfile(ctx, accessToken)
	if err != nil {
		var upstream *UpstreamAuthError
		if errors.As(err, &upstream) && upstream.Rejected() {
			return Profile{}, fmt.Errorf("%w: provider rejected credential (status %d)", ErrUnauthorized, upstream.StatusCode)
		}
		return Profile{}, err
	}

	if subjectHint != "" && subjectHint != profile.SubjectID {
		return Profile{}, fmt.Errorf("%w: credential subject mismatch", ErrUnauthorized)
	}

	return profile, nil
}
