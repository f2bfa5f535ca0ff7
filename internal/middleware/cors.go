package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// CORS returns a middleware that only admits the configured origins. The gate
// relies on cookies, so credentials are allowed and wildcard origins are not.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(config.AllowedOrigins))
	for _, origin := range config.AllowedOrigins {
		if origin != "" && origin != "*" {
			origins = append(origins, origin)
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           config.MaxAge,
	})
	return c.Handler
}
