package auth

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRequest reports a malformed or missing code or credential.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUpstreamAuth matches every *UpstreamAuthError via errors.Is.
	ErrUpstreamAuth = errors.New("upstream auth error")
	// ErrPersistence reports a storage failure while recording the user.
	ErrPersistence = errors.New("persistence error")
	// ErrUnauthorized reports a credential the provider no longer accepts.
	ErrUnauthorized = errors.New("unauthorized")
)

// UpstreamAuthError describes a failed call to the identity provider.
type UpstreamAuthError struct {
	Op          string
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *UpstreamAuthError) Error() string {
	msg := "upstream auth: " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamAuthError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUpstreamAuth) match without losing the typed detail.
func (e *UpstreamAuthError) Is(target error) bool {
	return target == ErrUpstreamAuth
}

// Rejected reports whether the provider answered and refused the request, as
// opposed to being unreachable or failing on its own side.
func (e *UpstreamAuthError) Rejected() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError
}
