package middleware

import (
	"encoding/json"
	"net/http"

	"gitea.com/go-chi/session"

	"github.com/turtlelab/labtrack/services"
	"github.com/turtlelab/labtrack/userctx"
)

// SessionUsernameKey is the session key holding the authenticated username.
const SessionUsernameKey = "username"

// RequireAuth ensures the request carries an authenticated session and puts
// the username into the request context
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.GetSession(r)
		username, ok := sess.Get(SessionUsernameKey).(string)
		if !ok || username == "" {
			unauthorized(w, "authentication required")
			return
		}

		ctx := userctx.SetUsername(r.Context(), username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission ensures the authenticated user's role grants the given
// permission code. Must run behind RequireAuth.
func RequirePermission(users services.UserService, code string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username := userctx.GetUsername(r.Context())
			granted, err := users.HasPermission(r.Context(), username, code)
			if err != nil {
				unauthorized(w, "permission check failed")
				return
			}
			if !granted {
				forbidden(w, "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
