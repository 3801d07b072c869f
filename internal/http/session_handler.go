package http

import (
	"net/http"
	"strings"
	"time"

	"dsanotes/internal/auth"
)

const (
	sessionTokenCookieName   = "dsa_token"
	sessionSubjectCookieName = "dsa_uid"
	sessionExpiryCookieName  = "dsa_expiry"
)

// SessionHandler writes and clears the browser session cookies. The session
// is the provider access token itself; nothing is stored server side.
type SessionHandler struct {
	secureCookie bool
}

// NewSessionHandler returns a handler; cookies are marked Secure unless secure is false.
func NewSessionHandler(secure bool) *SessionHandler {
	return &SessionHandler{secureCookie: secure}
}

// Issue hands credential to the browser. The token and subject cookies are
// HttpOnly; the expiry cookie is readable so the frontend can schedule re-login.
func (h *SessionHandler) Issue(w http.ResponseWriter, credential auth.Credential) {
	http.SetCookie(w, h.cookie(sessionTokenCookieName, credential.AccessToken, credential.Expiry, true))
	http.SetCookie(w, h.cookie(sessionSubjectCookieName, credential.SubjectID, credential.Expiry, true))
	http.SetCookie(w, h.cookie(sessionExpiryCookieName, credential.Expiry.UTC().Format(time.RFC3339), credential.Expiry, false))
}

// Logout handles POST /auth/logout by expiring every session cookie.
func (h *SessionHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) clear(w http.ResponseWriter) {
	for _, name := range []string{sessionTokenCookieName, sessionSubjectCookieName, sessionExpiryCookieName} {
		expired := h.cookie(name, "", time.Unix(0, 0), name != sessionExpiryCookieName)
		expired.MaxAge = -1
		http.SetCookie(w, expired)
	}
}

func (h *SessionHandler) cookie(name, value string, expires time.Time, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
}

// sessionFromRequest returns the presented access token and, for cookie
// sessions, the subject hint. A bearer header wins over cookies.
func sessionFromRequest(r *http.Request) (token, subjectHint string) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value), ""
		}
		return "", ""
	}

	cookie, err := r.Cookie(sessionTokenCookieName)
	if err != nil {
		return "", ""
	}
	if subject, err := r.Cookie(sessionSubjectCookieName); err == nil {
		subjectHint = subject.Value
	}
	return cookie.Value, subjectHint
}
