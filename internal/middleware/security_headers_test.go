package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveWithSecurityHeaders(env string, req *http.Request) *httptest.ResponseRecorder {
	handler := SecurityHeaders(SecurityHeadersConfig{Env: env})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Production(t *testing.T) {
	req := httptest.NewRequest("GET", "/auth", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := serveWithSecurityHeaders("production", req)

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "no-referrer"},
		{"Cache-Control", "no-store"},
		{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, w.Header().Get(tt.header), tt.header)
	}

	csp := w.Header().Get("Content-Security-Policy")
	assert.True(t, strings.HasPrefix(csp, "default-src 'self';"), csp)
	assert.NotContains(t, csp, "unsafe-inline")
}

func TestSecurityHeaders_ProductionPlainHTTP(t *testing.T) {
	w := serveWithSecurityHeaders("production", httptest.NewRequest("GET", "/", nil))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_Development(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := serveWithSecurityHeaders("development", req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "unsafe-inline")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
