package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSessionIssuerExpiryIsIssuanceTimePlusLifetime(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 750_000_000, time.UTC)
	issuer := NewSessionIssuer(func() time.Time { return issuedAt })

	credential, err := issuer.Issue("tok1", "u1", 3600*time.Second)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	want := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	if !credential.Expiry.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, credential.Expiry)
	}
	if credential.AccessToken != "tok1" || credential.SubjectID != "u1" {
		t.Fatalf("unexpected credential: %+v", credential)
	}
}

func TestSessionIssuerRejectsIncompleteInput(t *testing.T) {
	issuer := NewSessionIssuer(nil)

	cases := []struct {
		name      string
		token     string
		subject   string
		expiresIn time.Duration
	}{
		{"missing token", "", "u1", time.Hour},
		{"missing subject", "tok1", "", time.Hour},
		{"zero lifetime", "tok1", "u1", 0},
		{"negative lifetime", "tok1", "u1", -time.Minute},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := issuer.Issue(tc.token, tc.subject, tc.expiresIn)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}
