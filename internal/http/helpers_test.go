package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	"dsanotes/internal/auth"
	"dsanotes/internal/config"
	"dsanotes/internal/users"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func devConfig() config.Config {
	return config.Config{
		Environment:    "development",
		FrontendURL:    "http://frontend.test",
		AllowedOrigins: []string{"http://frontend.test"},
	}
}

type authURLStub struct {
	lastState string
}

func (s *authURLStub) AuthURL(state string) string {
	s.lastState = state
	return "https://accounts.google.test/auth?state=" + state
}

type loginStub struct {
	mu       sync.Mutex
	codes    []string
	complete func(ctx context.Context, code string) (auth.LoginResult, error)
}

func (s *loginStub) Complete(ctx context.Context, code string) (auth.LoginResult, error) {
	s.mu.Lock()
	s.codes = append(s.codes, code)
	s.mu.Unlock()
	if s.complete != nil {
		return s.complete(ctx, code)
	}
	return auth.LoginResult{}, nil
}

func (s *loginStub) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

type validatorStub struct {
	mu       sync.Mutex
	calls    int
	tokens   []string
	hints    []string
	validate func(ctx context.Context, token, hint string) (auth.Profile, error)
}

func (s *validatorStub) Validate(ctx context.Context, token, hint string) (auth.Profile, error) {
	s.mu.Lock()
	s.calls++
	s.tokens = append(s.tokens, token)
	s.hints = append(s.hints, hint)
	s.mu.Unlock()
	if s.validate != nil {
		return s.validate(ctx, token, hint)
	}
	return auth.Profile{}, auth.ErrUnauthorized
}

type userFinderStub struct {
	find func(ctx context.Context, subjectID string) (users.User, error)
}

func (s *userFinderStub) FindBySubject(ctx context.Context, subjectID string) (users.User, error) {
	if s.find != nil {
		return s.find(ctx, subjectID)
	}
	return users.User{}, users.ErrNotFound
}

func newTestRouter(deps Dependencies) http.Handler {
	if deps.Google == nil {
		deps.Google = &authURLStub{}
	}
	if deps.Login == nil {
		deps.Login = &loginStub{}
	}
	if deps.Validator == nil {
		deps.Validator = &validatorStub{}
	}
	if deps.Users == nil {
		deps.Users = &userFinderStub{}
	}
	deps.Logger = discardLogger()
	return NewRouter(devConfig(), deps)
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
