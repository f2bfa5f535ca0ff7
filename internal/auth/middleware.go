package auth

import (
	"context"
	"net/http"

	"github.com/BradenHooton/sitegate/internal/models"
	pkghttp "github.com/BradenHooton/sitegate/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing the session marker in context
	SessionContextKey contextKey = "session"
)

// SessionParser validates the session cookies of a request
type SessionParser interface {
	Parse(token, issuedAt string) (*models.SessionMarker, error)
}

// RequireSession only lets requests through that carry a valid, unexpired
// session marker. The marker is injected into the request context.
func RequireSession(sessions SessionParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, issuedAt := GetSessionCookies(r)

			marker, err := sessions.Parse(token, issuedAt)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, marker)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionFromContext extracts the session marker from request context
func GetSessionFromContext(r *http.Request) *models.SessionMarker {
	marker, ok := r.Context().Value(SessionContextKey).(*models.SessionMarker)
	if !ok {
		return nil
	}
	return marker
}
