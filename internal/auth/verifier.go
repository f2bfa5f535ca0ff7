package auth

import (
	"crypto/subtle"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CredentialLength is the fixed number of decimal digits in a gate code
const CredentialLength = 3

// VerifyResult classifies a submitted credential
type VerifyResult int

const (
	VerifyMissing VerifyResult = iota
	VerifyInvalidFormat
	VerifyMismatch
	VerifyMatch
)

func (r VerifyResult) String() string {
	switch r {
	case VerifyMissing:
		return "missing"
	case VerifyInvalidFormat:
		return "invalid_format"
	case VerifyMismatch:
		return "mismatch"
	case VerifyMatch:
		return "match"
	default:
		return "unknown"
	}
}

// formatRule is the validator tag for a well-formed gate code: exactly
// CredentialLength ASCII digits.
var formatRule = fmt.Sprintf("len=%d,number", CredentialLength)

var validate = validator.New()

// CredentialVerifier compares submitted gate codes against the expected code
// without leaking where a mismatch occurs.
type CredentialVerifier struct {
	expected []byte
}

// NewCredentialVerifier creates a verifier for the expected gate code
func NewCredentialVerifier(expected string) (*CredentialVerifier, error) {
	if err := ValidateCredentialFormat(expected); err != nil {
		return nil, fmt.Errorf("expected credential must be exactly %d digits", CredentialLength)
	}

	return &CredentialVerifier{expected: []byte(expected)}, nil
}

// ValidateCredentialFormat checks that code is exactly CredentialLength digits
func ValidateCredentialFormat(code string) error {
	return validate.Var(code, formatRule)
}

// Check classifies submitted. Anything that is not a non-empty string is
// reported as missing. The format check runs before the comparison; it only
// rejects on length and character class, which reveal nothing about the code.
func (v *CredentialVerifier) Check(submitted any) VerifyResult {
	code, ok := submitted.(string)
	if !ok || code == "" {
		return VerifyMissing
	}

	if err := ValidateCredentialFormat(code); err != nil {
		return VerifyInvalidFormat
	}

	// Lengths are equal here, so ConstantTimeCompare runs over every byte
	if subtle.ConstantTimeCompare([]byte(code), v.expected) == 1 {
		return VerifyMatch
	}

	return VerifyMismatch
}

// Verify reports whether submitted matches the expected code. It fails closed.
func (v *CredentialVerifier) Verify(submitted any) bool {
	return v.Check(submitted) == VerifyMatch
}
