package auth

import (
	"net/http"
	"time"
)

const (
	// SessionCookieName holds the signed session flag
	SessionCookieName = "site_auth"
	// SessionTimeCookieName holds the issuance timestamp bound to the flag
	SessionTimeCookieName = "site_auth_time"
)

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
}

// SetSessionCookies writes both session marker cookies. They are httpOnly,
// scoped to the whole site and expire together after maxAge.
func SetSessionCookies(w http.ResponseWriter, cookies *SessionCookies, maxAge time.Duration, config CookieConfig) {
	seconds := int(maxAge / time.Second)
	expires := time.Now().Add(maxAge)

	for name, value := range map[string]string{
		SessionCookieName:     cookies.Token,
		SessionTimeCookieName: cookies.IssuedAt,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   config.Domain,
			Expires:  expires,
			MaxAge:   seconds,
			HttpOnly: true,
			Secure:   config.Secure,
			SameSite: parseSameSite(config.SameSite),
		})
	}
}

// ClearSessionCookies deletes both session marker cookies
func ClearSessionCookies(w http.ResponseWriter, config CookieConfig) {
	for _, name := range []string{SessionCookieName, SessionTimeCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   config.Domain,
			MaxAge:   -1, // Negative MaxAge deletes the cookie
			HttpOnly: true,
			Secure:   config.Secure,
			SameSite: parseSameSite(config.SameSite),
		})
	}
}

// GetSessionCookies returns the raw session cookie values, empty when absent
func GetSessionCookies(r *http.Request) (token, issuedAt string) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		token = cookie.Value
	}
	if cookie, err := r.Cookie(SessionTimeCookieName); err == nil {
		issuedAt = cookie.Value
	}
	return token, issuedAt
}

// parseSameSite converts string to http.SameSite constant. Anything but
// "lax" is strict; the session cookies are never sent with SameSite=None.
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteStrictMode
	}
}
