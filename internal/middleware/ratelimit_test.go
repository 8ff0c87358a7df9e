package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	appmw "github.com/s1natex/taskboard/internal/middleware"
)

func TestRateLimit(t *testing.T) {
	lim := appmw.NewLimiters(1, 1) // 1 rps, burst 1
	r := chi.NewRouter()
	r.Use(appmw.RateLimitMiddleware(lim))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	ping := func(user string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/ping", nil)
		if user != "" {
			req.Header.Set("x-user-id", user)
		}
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	// first allowed
	if code := ping("alice"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	// second immediately should be 429
	if code := ping("alice"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	// other users have their own bucket
	if code := ping("bob"); code != http.StatusOK {
		t.Fatalf("expected 200 for bob, got %d", code)
	}
	// anonymous callers are keyed by IP
	if code := ping(""); code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous caller, got %d", code)
	}
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	if appmw.NewLimiters(0, 5) != nil {
		t.Fatalf("expected nil limiters for rps=0")
	}
	r := chi.NewRouter()
	r.Use(appmw.RateLimitMiddleware(nil))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}
