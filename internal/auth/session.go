package auth

import (
	"fmt"
	"time"
)

// SessionIssuer turns an exchanged token into the credential handed to the browser.
type SessionIssuer struct {
	now func() time.Time
}

// NewSessionIssuer creates a SessionIssuer. A nil clock defaults to time.Now.
func NewSessionIssuer(now func() time.Time) *SessionIssuer {
	if now == nil {
		now = time.Now
	}
	return &SessionIssuer{now: now}
}

// Issue binds the token and subject to an expiry of now plus the provider-declared
// lifetime, to the second. The expiry is never extended afterwards.
func (s *SessionIssuer) Issue(accessToken, subjectID string, expiresIn time.Duration) (Credential, error) {
	if accessToken == "" || subjectID == "" {
		return Credential{}, fmt.Errorf("%w: token and subject are required", ErrInvalidRequest)
	}
	if expiresIn <= 0 {
		return Credential{}, fmt.Errorf("%w: non-positive token lifetime", ErrInvalidRequest)
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	return Credential{
		AccessToken: accessToken,
		SubjectID:   subjectID,
		Expiry:      issuedAt.Add(expiresIn.Truncate(time.Second)),
	}, nil
}
