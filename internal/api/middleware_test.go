package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	// Burst of 2 allowed, third denied.
	if !rl.Allow("1.2.3.4") {
		t.Error("first request should be allowed")
	}
	if !rl.Allow("1.2.3.4") {
		t.Error("second request should be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request should be rate limited")
	}

	// Other clients have their own bucket.
	if !rl.Allow("5.6.7.8") {
		t.Error("different client should be allowed")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "1.2.3.4:5678"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("first request status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
}

func TestRateLimitUsesRealIPHeader(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust the bucket for one forwarded client IP.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "9.9.9.9")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("forwarded client not limited, status = %d", w.Code)
	}

	// A different forwarded IP on the same socket is unaffected.
	req2 := httptest.NewRequest("GET", "/", nil)
	req2.Header.Set("X-Real-IP", "8.8.8.8")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req2)
	if w.Code != http.StatusOK {
		t.Errorf("different forwarded client status = %d, want %d", w.Code, http.StatusOK)
	}
}
