package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/s1natex/taskboard/internal/identity"
)

type userIDErr struct {
	Error string `json:"error"`
}

// RequireUserID resolves the caller's anonymous identifier from the x-user-id
// header (or the user_id cookie) and stores it on the request context.
// Requests without one are rejected with 400, except for skipPaths.
func RequireUserID(skipPaths ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			userID := identity.FromRequest(r)
			if userID == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(userIDErr{Error: "User ID required"})
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithUserID(r.Context(), userID)))
		})
	}
}
