package http

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dsanotes/internal/auth"
)

// oauthStatePayload holds the CSRF state and optional redirect path.
type oauthStatePayload struct {
	State      string `json:"s"`
	RedirectTo string `json:"r,omitempty"`
}

// isValidRedirectPath accepts only same-origin relative paths: a single
// leading "/", no scheme or host, including after percent-decoding.
func isValidRedirectPath(path string) bool {
	if path == "" {
		return false
	}

	decoded, err := url.QueryUnescape(path)
	if err != nil {
		return false
	}
	if !strings.HasPrefix(decoded, "/") || strings.HasPrefix(decoded, "//") || strings.Contains(decoded, "\\") {
		return false
	}

	parsed, err := url.Parse(decoded)
	if err != nil {
		return false
	}
	return parsed.Scheme == "" && parsed.Host == ""
}

const (
	oauthStateCookieName = "dsa_oauth_state"
	oauthStateCookieTTL  = 10 * time.Minute
	oauthStateCookiePath = "/auth/google"
)

// OAuthHandler serves the Google authorization redirect and callback.
type OAuthHandler struct {
	google      AuthURLBuilder
	flow        LoginCompleter
	sessions    *SessionHandler
	logger      *slog.Logger
	frontendURL string
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(google AuthURLBuilder, flow LoginCompleter, sessions *SessionHandler, frontendURL string, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		google:      google,
		flow:        flow,
		sessions:    sessions,
		logger:      logger,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

// InitiateGoogle handles GET /auth/google.
func (h *OAuthHandler) InitiateGoogle(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     oauthStateCookiePath,
		HttpOnly: true,
		Secure:   h.sessions.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(oauthStateCookieTTL.Seconds()),
	})

	payload := oauthStatePayload{State: state}
	if redirectTo := r.URL.Query().Get("redirectTo"); isValidRedirectPath(redirectTo) {
		payload.RedirectTo = redirectTo
	}
	stateJSON, _ := json.Marshal(payload)

	http.Redirect(w, r, h.google.AuthURL(base64.RawURLEncoding.EncodeToString(stateJSON)), http.StatusFound)
}

// CallbackGoogle handles GET /auth/google/callback. On success the browser is
// sent back to the frontend carrying only cookies; failures answer with JSON.
// The state parameter issued by InitiateGoogle is required: a callback that
// carries only a code is rejected with 400 before the code is exchanged.
func (h *OAuthHandler) CallbackGoogle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	redirectTo, ok := h.verifyState(w, r, query.Get("state"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid or expired state")
		return
	}

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("oauth callback: provider returned error", "provider_error", errParam)
		writeError(w, http.StatusBadRequest, "authorization was not granted: "+errParam)
		return
	}

	if len(query["code"]) > 1 {
		writeError(w, http.StatusBadRequest, "authorization code must be a single value")
		return
	}

	result, err := h.flow.Complete(r.Context(), query.Get("code"))
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	h.sessions.Issue(w, result.Credential)
	h.logger.Info("oauth login successful",
		"subject_id", result.Credential.SubjectID,
		"created", result.Created,
	)
	http.Redirect(w, r, h.frontendURL+redirectTo, http.StatusFound)
}

// verifyState checks the state parameter against the state cookie and clears
// the cookie. It returns the redirect path carried in the state.
func (h *OAuthHandler) verifyState(w http.ResponseWriter, r *http.Request, stateParam string) (string, bool) {
	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("oauth callback: missing state cookie")
		return "", false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     oauthStateCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.sessions.secureCookie,
	})

	stateBytes, err := base64.RawURLEncoding.DecodeString(stateParam)
	if err != nil {
		h.logger.Warn("oauth callback: invalid state encoding")
		return "", false
	}
	var payload oauthStatePayload
	if err := json.Unmarshal(stateBytes, &payload); err != nil {
		h.logger.Warn("oauth callback: invalid state JSON")
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(payload.State), []byte(stateCookie.Value)) != 1 {
		h.logger.Warn("oauth callback: state mismatch")
		return "", false
	}

	redirectTo := "/"
	if isValidRedirectPath(payload.RedirectTo) {
		redirectTo = payload.RedirectTo
	}
	return redirectTo, true
}

func (h *OAuthHandler) writeLoginError(w http.ResponseWriter, err error) {
	stage := ""
	var loginErr *auth.LoginError
	if errors.As(err, &loginErr) {
		stage = loginErr.Stage.String()
	}

	switch {
	case errors.Is(err, auth.ErrInvalidRequest):
		h.logger.Warn("oauth callback: invalid request", "stage", stage, "error", err)
		writeError(w, http.StatusBadRequest, "missing authorization code")
	case errors.Is(err, auth.ErrPersistence):
		// Already logged by the login flow as a reconciliation candidate.
		writeError(w, http.StatusInternalServerError, "failed to create user account")
	case errors.Is(err, auth.ErrUpstreamAuth):
		h.logger.Warn("oauth callback: provider call failed", "stage", stage, "error", err)
		writeError(w, http.StatusInternalServerError, "authentication with Google failed")
	default:
		h.logger.Error("oauth callback: unexpected failure", "stage", stage, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
