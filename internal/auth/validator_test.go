package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type fetcherStub struct {
	calls   int
	profile Profile
	err     error
}

func (f *fetcherStub) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	f.calls++
	return f.profile, f.err
}

func TestSessionValidatorMissingCredentialMakesNoUpstreamCall(t *testing.T) {
	fetcher := &fetcherStub{}
	validator := NewSessionValidator(fetcher)

	_, err := validator.Validate(context.Background(), "", "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", fetcher.calls)
	}
}

func TestSessionValidatorProviderRejectionIsUnauthorized(t *testing.T) {
	fetcher := &fetcherStub{err: &UpstreamAuthError{Op: "userinfo", StatusCode: http.StatusUnauthorized}}
	validator := NewSessionValidator(fetcher)

	_, err := validator.Validate(context.Background(), "stale", "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if errors.Is(err, ErrUpstreamAuth) {
		t.Fatalf("expected rejection not to surface as upstream error, got %v", err)
	}
}

func TestSessionValidatorProviderOutageIsUpstreamError(t *testing.T) {
	fetcher := &fetcherStub{err: &UpstreamAuthError{Op: "userinfo", StatusCode: http.StatusServiceUnavailable}}
	validator := NewSessionValidator(fetcher)

	_, err := validator.Validate(context.Background(), "tok1", "")
	if !errors.Is(err, ErrUpstreamAuth) {
		t.Fatalf("expected ErrUpstreamAuth, got %v", err)
	}
}

func TestSessionValidatorRejectsSubjectMismatch(t *testing.T) {
	fetcher := &fetcherStub{profile: Profile{SubjectID: "u1"}}
	validator := NewSessionValidator(fetcher)

	if _, err := validator.Validate(context.Background(), "tok1", "u2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for mismatched subject, got %v", err)
	}

	profile, err := validator.Validate(context.Background(), "tok1", "u1")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if profile.SubjectID != "u1" {
		t.Fatalf("expected subject u1, got %q", profile.SubjectID)
	}
}
