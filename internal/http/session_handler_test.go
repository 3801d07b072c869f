package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dsanotes/internal/auth"
)

func TestSessionHandlerIssueSetsSecureCookies(t *testing.T) {
	handler := NewSessionHandler(true)
	expiry := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	rec := httptest.NewRecorder()

	handler.Issue(rec, auth.Credential{AccessToken: "tok1", SubjectID: "u1", Expiry: expiry})

	cookies := rec.Result().Cookies()
	if len(cookies) != 3 {
		t.Fatalf("expected 3 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if !c.Secure || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
			t.Fatalf("unexpected cookie attributes: %+v", c)
		}
		if !c.Expires.Equal(expiry) {
			t.Fatalf("expected %s to expire at %v, got %v", c.Name, expiry, c.Expires)
		}
	}
}

func TestSessionHandlerLogoutClearsCookies(t *testing.T) {
	router := newTestRouter(Dependencies{})

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	for _, name := range []string{sessionTokenCookieName, sessionSubjectCookieName, sessionExpiryCookieName} {
		c := findCookie(cookies, name)
		if c == nil || c.Value != "" || c.MaxAge >= 0 {
			t.Fatalf("expected %s to be cleared, got %+v", name, c)
		}
	}
}
