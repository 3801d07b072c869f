package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRateLimiterRejectsAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(2, discardLogger())
	t.Cleanup(limiter.Stop)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	request := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
		req.RemoteAddr = remote
		return serve(handler, req).Code
	}

	if code := request("10.0.0.1:1000"); code != http.StatusNoContent {
		t.Fatalf("first request: expected 204, got %d", code)
	}
	if code := request("10.0.0.1:1001"); code != http.StatusNoContent {
		t.Fatalf("second request: expected 204, got %d", code)
	}
	if code := request("10.0.0.1:1002"); code != http.StatusTooManyRequests {
		t.Fatalf("third request: expected 429, got %d", code)
	}
	if code := request("10.0.0.2:1000"); code != http.StatusNoContent {
		t.Fatalf("other client: expected 204, got %d", code)
	}
}

func TestRateLimiterSetsRetryAfter(t *testing.T) {
	limiter := NewRateLimiter(1, discardLogger())
	t.Cleanup(limiter.Stop)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	serve(handler, req)
	rec := serve(handler, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(10, discardLogger())
	t.Cleanup(limiter.Stop)

	limiter.limiterFor("10.0.0.1")
	limiter.limiterFor("10.0.0.2")
	if limiter.size() != 2 {
		t.Fatalf("expected 2 tracked clients, got %d", limiter.size())
	}

	limiter.evictIdle(time.Now().Add(time.Hour), time.Minute)
	if limiter.size() != 0 {
		t.Fatalf("expected idle clients to be evicted, got %d", limiter.size())
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	limiter := NewRateLimiter(10, discardLogger())
	limiter.Stop()
	limiter.Stop()
}

func TestRateLimiterLogsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	limiter := NewRateLimiter(1, slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(limiter.Stop)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	serve(handler, req)
	if buf.Len() != 0 {
		t.Fatalf("unexpected log before limit: %q", buf.String())
	}

	if code := serve(handler, req).Code; code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if !strings.Contains(buf.String(), "rate limit exceeded") || !strings.Contains(buf.String(), "client_ip=10.0.0.9") {
		t.Fatalf("expected rate limit warning, got %q", buf.String())
	}
}
