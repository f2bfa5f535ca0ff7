package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/BradenHooton/sitegate/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const sessionKeyInfo = "sitegate session marker v1"

// SessionCookies are the two companion values delivered to the client
type SessionCookies struct {
	Token    string // signed flag
	IssuedAt string // issuance time in Unix milliseconds
}

// SessionManager issues and validates gate session markers
type SessionManager struct {
	signingKey []byte
	duration   time.Duration
	now        func() time.Time
}

// NewSessionManager creates a SessionManager whose signing key is derived
// from secret
func NewSessionManager(secret string, duration time.Duration) (*SessionManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if duration <= 0 {
		return nil, fmt.Errorf("session duration must be positive")
	}

	key, err := deriveSigningKey(secret)
	if err != nil {
		return nil, err
	}

	return &SessionManager{
		signingKey: key,
		duration:   duration,
		now:        time.Now,
	}, nil
}

// SetClock replaces the time source (tests)
func (m *SessionManager) SetClock(now func() time.Time) {
	m.now = now
}

// Duration returns how long an issued session stays valid
func (m *SessionManager) Duration() time.Duration {
	return m.duration
}

func deriveSigningKey(secret string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive session signing key: %w", err)
	}
	return key, nil
}

// Issue creates a new session marker stamped with the current time and the
// signed cookie values that carry it.
func (m *SessionManager) Issue() (*models.SessionMarker, *SessionCookies, error) {
	issuedAt := m.now().Truncate(time.Millisecond)
	marker := &models.SessionMarker{
		ID:        uuid.New().String(),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(m.duration),
	}

	claims := &models.SessionClaims{
		Authenticated: true,
		IssuedAtMs:    issuedAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        marker.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(marker.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign session marker: %w", err)
	}

	return marker, &SessionCookies{
		Token:    token,
		IssuedAt: strconv.FormatInt(claims.IssuedAtMs, 10),
	}, nil
}

// Parse validates the two cookie values and returns the marker they carry.
// It returns ErrSessionMissing, ErrSessionInvalid or ErrSessionExpired.
func (m *SessionManager) Parse(token, issuedAtRaw string) (*models.SessionMarker, error) {
	if token == "" || issuedAtRaw == "" {
		return nil, models.ErrSessionMissing
	}

	issuedAtMs, err := strconv.ParseInt(issuedAtRaw, 10, 64)
	if err != nil {
		return nil, models.ErrSessionInvalid
	}

	// Expiry is decided below against our own clock, not the JWT time claims
	claims := &models.SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return nil, models.ErrSessionInvalid
	}

	if !claims.Authenticated || claims.IssuedAtMs != issuedAtMs {
		return nil, models.ErrSessionInvalid
	}

	issuedAt := time.UnixMilli(issuedAtMs)
	marker := &models.SessionMarker{
		ID:        claims.ID,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(m.duration),
	}

	if m.now().Sub(issuedAt) > m.duration {
		return marker, models.ErrSessionExpired
	}

	return marker, nil
}

// Check answers whether the presented cookies still hold a valid session
func (m *SessionManager) Check(token, issuedAtRaw string) models.SessionStatus {
	marker, err := m.Parse(token, issuedAtRaw)
	if err != nil {
		if errors.Is(err, models.ErrSessionExpired) {
			return models.SessionStatus{Authenticated: false, Expired: true}
		}
		return models.SessionStatus{Authenticated: false}
	}

	expiresAt := marker.ExpiresAt.UnixMilli()
	return models.SessionStatus{Authenticated: true, ExpiresAt: &expiresAt}
}
