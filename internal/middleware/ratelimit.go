package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/s1natex/taskboard/internal/identity"
)

type rateErr struct {
	Error string `json:"error"`
}

// Limiters hands out one token bucket per caller. Callers are keyed by user
// id when one was resolved, otherwise by remote IP.
type Limiters struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

func NewLimiters(rps float64, burst int) *Limiters {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiters{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *Limiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.buckets[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = lim
	}
	return lim
}

func RateLimitMiddleware(l *Limiters) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.get(limitKey(r)).Allow() {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			retry := 1.0
			if l.rps > 0 {
				retry = 1.0 / float64(l.rps)
			}
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(retry)))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(rateErr{Error: "too_many_requests"})
		})
	}
}

func limitKey(r *http.Request) string {
	if id := identity.FromContext(r.Context()); id != "" {
		return "user:" + id
	}
	if id := identity.FromRequest(r); id != "" {
		return "user:" + id
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
