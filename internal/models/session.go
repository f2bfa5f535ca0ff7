package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionMarker is the proof of a successful gate login handed to the client.
type SessionMarker struct {
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionStatus is the result of a session status check. ExpiresAt is in
// Unix milliseconds, the same unit as the issued-at cookie.
type SessionStatus struct {
	Authenticated bool   `json:"authenticated"`
	Expired       bool   `json:"expired,omitempty"`
	ExpiresAt     *int64 `json:"expiresAt,omitempty"`
}

// SessionClaims are the JWT claims carried by the session flag cookie.
type SessionClaims struct {
	Authenticated bool  `json:"authenticated"`
	IssuedAtMs    int64 `json:"iat_ms"`
	jwt.RegisteredClaims
}
