package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/sitegate/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitMessage is returned when the request budget runs out. It differs
// from the lockout message so clients can tell the two apart.
const RateLimitMessage = "Too many requests. Please slow down."

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultGateRateLimit returns the request cap for the gate endpoints. It sits
// in front of the lockout tracker and bounds raw request volume only.
func DefaultGateRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
	}
}

// RateLimitByClientKey creates a middleware that rate limits requests by the
// same client key the lockout tracker uses
func RateLimitByClientKey(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ClientKey(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, RateLimitMessage)
		}),
	)
}
