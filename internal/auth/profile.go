package auth

import "time"

// Profile is the identity the provider vouches for.
type Profile struct {
	SubjectID  string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	PictureURL string `json:"picture"`
}

// Token is the result of a successful authorization code exchange.
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
	IDToken     string
}

// Credential is the session handed to the browser. It is never stored server side.
type Credential struct {
	AccessToken string
	SubjectID   string
	Expiry      time.Time
}
