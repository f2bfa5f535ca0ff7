package http

import (
	"net/http"
	"strings"
)

// UnknownClientKey is shared by every caller without forwarding headers
const UnknownClientKey = "unknown"

// ClientKey derives the rate-limit bucket for a request from the proxy
// forwarding headers:
//
// 1. the first entry of X-Forwarded-For
// 2. X-Real-IP
// 3. "unknown"
//
// The headers are taken as sent by the edge proxy the site is deployed
// behind. All callers that resolve to "unknown" share one lockout bucket.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return UnknownClientKey
}
