package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Gate credential errors
	ErrPasswordRequired      = errors.New("password is required")
	ErrInvalidPasswordFormat = errors.New("invalid password format")
	ErrInvalidPassword       = errors.New("invalid password")
	ErrRateLimitExceeded     = errors.New("too many attempts")

	// Session marker errors
	ErrSessionMissing = errors.New("session marker missing")
	ErrSessionInvalid = errors.New("session marker invalid")
	ErrSessionExpired = errors.New("session marker expired")
)
