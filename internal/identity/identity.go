// Package identity resolves the anonymous per-browser user identifier that
// partitions every task row. The identifier is not authenticated.
package identity

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	HeaderName = "x-user-id"
	CookieName = "user_id"

	// CookieMaxAge is how long a generated identifier stays in the cookie.
	CookieMaxAge = 365 * 24 * time.Hour
)

// Source yields the identifier to attach to outgoing requests.
type Source interface {
	UserID() string
}

// Static is a fixed identifier.
type Static string

func (s Static) UserID() string { return string(s) }

type ctxKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// FromContext returns the identifier stored by WithUserID, or "".
func FromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// FromRequest reads the x-user-id header, falling back to the user_id cookie.
func FromRequest(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(HeaderName)); v != "" {
		return v
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
