package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleIssuer             = "https://accounts.google.com"
	defaultProviderTimeout   = 10 * time.Second
	maxUserInfoBytes         = 1 << 20
)

// GoogleConfig holds the OAuth client registration for Google.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration

	// Endpoint overrides, used by tests and alternative deployments.
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// IDTokenVerifier is satisfied by *oidc.IDTokenVerifier.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// ProviderMetrics receives the latency and outcome of each provider call.
type ProviderMetrics interface {
	RecordProviderCall(op, outcome string, duration time.Duration)
}

// GoogleOption customises a GoogleClient.
type GoogleOption func(*GoogleClient)

// WithHTTPClient replaces the client used for every provider call.
func WithHTTPClient(client *http.Client) GoogleOption {
	return func(g *GoogleClient) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithIDTokenVerifier enables the id_token subject cross-check after exchange.
func WithIDTokenVerifier(verifier IDTokenVerifier) GoogleOption {
	return func(g *GoogleClient) {
		g.verifier = verifier
	}
}

// WithProviderMetrics records every token and userinfo call.
func WithProviderMetrics(metrics ProviderMetrics) GoogleOption {
	return func(g *GoogleClient) {
		g.metrics = metrics
	}
}

// GoogleClient exchanges authorization codes and resolves profiles against Google.
type GoogleClient struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	verifier    IDTokenVerifier
	metrics     ProviderMetrics
}

// NewGoogleClient creates a GoogleClient. Client credentials are sent in the
// form body of the token request.
func NewGoogleClient(cfg GoogleConfig, opts ...GoogleOption) *GoogleClient {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = defaultGoogleAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = google.Endpoint.TokenURL
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}

	g := &GoogleClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"profile", "email"},
		},
		userInfoURL: userInfoURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGoogleIDTokenVerifier discovers Google's signing keys and returns a verifier
// bound to clientID.
func NewGoogleIDTokenVerifier(ctx context.Context, clientID string) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return provider.Verifier(&oidc.Config{ClientID: clientID}), nil
}

// AuthURL generates the Google consent URL with the given state.
func (g *GoogleClient) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades a single-use authorization code for an access token.
func (g *GoogleClient) Exchange(ctx context.Context, code string) (Token, error) {
	if code == "" {
		return Token{}, fmt.Errorf("%w: missing authorization code", ErrInvalidRequest)
	}

	start := time.Now()
	token, err := g.exchange(ctx, code)
	g.observe("token_exchange", start, err)
	return token, err
}

func (g *GoogleClient) exchange(ctx context.Context, code string) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			upstream := &UpstreamAuthError{
				Op:          "token exchange",
				Code:        retrieveErr.ErrorCode,
				Description: retrieveErr.ErrorDescription,
			}
			if retrieveErr.Response != nil {
				upstream.StatusCode = retrieveErr.Response.StatusCode
			}
			return Token{}, upstream
		}
		return Token{}, &UpstreamAuthError{Op: "token exchange", Err: err}
	}

	if tok.ExpiresIn <= 0 {
		return Token{}, &UpstreamAuthError{Op: "token exchange", Description: "response has no expires_in"}
	}

	idToken, _ := tok.Extra("id_token").(string)
	return Token{
		AccessToken: tok.AccessToken,
		ExpiresIn:   time.Duration(tok.ExpiresIn) * time.Second,
		IDToken:     idToken,
	}, nil
}

type userInfoResponse struct {
	ID      string `json:"id"`
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// FetchProfile resolves the profile behind a bearer access token. It never retries.
func (g *GoogleClient) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	if accessToken == "" {
		return Profile{}, fmt.Errorf("%w: missing access token", ErrInvalidRequest)
	}

	start := time.Now()
	profile, err := g.fetchProfile(ctx, accessToken)
	g.observe("userinfo", start, err)
	return profile, err
}

func (g *GoogleClient) fetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Profile{}, &UpstreamAuthError{Op: "userinfo", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Profile{}, &UpstreamAuthError{Op: "userinfo", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return Profile{}, &UpstreamAuthError{Op: "userinfo", StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Profile{}, &UpstreamAuthError{
			Op:          "userinfo",
			StatusCode:  resp.StatusCode,
			Description: http.StatusText(resp.StatusCode),
		}
	}

	var info userInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return Profile{}, &UpstreamAuthError{Op: "userinfo", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}

	subject := info.ID
	if subject == "" {
		subject = info.Sub
	}
	if subject == "" {
		return Profile{}, &UpstreamAuthError{Op: "userinfo", StatusCode: resp.StatusCode, Description: "response has no subject id"}
	}

	return Profile{
		SubjectID:  subject,
		Name:       info.Name,
		Email:      info.Email,
		PictureURL: info.Picture,
	}, nil
}

// VerifyIDToken checks that a returned id_token is valid and names the same
// subject as the userinfo profile. It is a no-op without a verifier or token.
func (g *GoogleClient) VerifyIDToken(ctx context.Context, rawIDToken, subjectID string) error {
	if g.verifier == nil || rawIDToken == "" {
		return nil
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return &UpstreamAuthError{Op: "id token verification", Err: err}
	}
	if idToken.Subject != subjectID {
		return &UpstreamAuthError{Op: "id token verification", Description: "subject does not match userinfo"}
	}
	return nil
}

func (g *GoogleClient) observe(op string, start time.Time, err error) {
	if g.metrics == nil {
		return
	}
	outcome := "ok"
	var upstream *UpstreamAuthError
	switch {
	case err == nil:
	case errors.As(err, &upstream) && upstream.Rejected():
		outcome = "rejected"
	default:
		outcome = "error"
	}
	g.metrics.RecordProviderCall(op, outcome, time.Since(start))
}

// GenerateState generates a cryptographically secure random state string.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
