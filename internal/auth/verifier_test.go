package auth_test

import (
	"slices"
	"testing"
	"time"

	"github.com/BradenHooton/sitegate/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredentialVerifier(t *testing.T) {
	_, err := auth.NewCredentialVerifier("042")
	assert.NoError(t, err)

	for _, bad := range []string{"", "42", "0420", "abc", "4 2"} {
		_, err := auth.NewCredentialVerifier(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestCredentialVerifier_Check(t *testing.T) {
	verifier, err := auth.NewCredentialVerifier("000")
	require.NoError(t, err)

	tests := []struct {
		name      string
		submitted any
		want      auth.VerifyResult
	}{
		{name: "match", submitted: "000", want: auth.VerifyMatch},
		{name: "mismatch last digit", submitted: "001", want: auth.VerifyMismatch},
		{name: "mismatch first digit", submitted: "900", want: auth.VerifyMismatch},
		{name: "too short", submitted: "00", want: auth.VerifyInvalidFormat},
		{name: "too long", submitted: "0000", want: auth.VerifyInvalidFormat},
		{name: "letters", submitted: "abc", want: auth.VerifyInvalidFormat},
		{name: "padded", submitted: " 000", want: auth.VerifyInvalidFormat},
		{name: "signed", submitted: "-00", want: auth.VerifyInvalidFormat},
		{name: "empty", submitted: "", want: auth.VerifyMissing},
		{name: "nil", submitted: nil, want: auth.VerifyMissing},
		{name: "number", submitted: float64(0), want: auth.VerifyMissing},
		{name: "bool", submitted: true, want: auth.VerifyMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verifier.Check(tt.submitted))
			assert.Equal(t, tt.want == auth.VerifyMatch, verifier.Verify(tt.submitted))
		})
	}
}

func TestVerifyResult_String(t *testing.T) {
	assert.Equal(t, "missing", auth.VerifyMissing.String())
	assert.Equal(t, "invalid_format", auth.VerifyInvalidFormat.String())
	assert.Equal(t, "mismatch", auth.VerifyMismatch.String())
	assert.Equal(t, "match", auth.VerifyMatch.String())
}

// A mismatch in the first digit must not return measurably sooner than one in
// the last digit. Batches of both are interleaved so scheduler noise hits
// them alike, and the medians are compared.
func TestCredentialVerifier_MismatchPositionTiming(t *testing.T) {
	if testing.Short() {
		t.Skip("timing measurement skipped in short mode")
	}

	verifier, err := auth.NewCredentialVerifier("123")
	require.NoError(t, err)

	const (
		samples   = 301
		batchSize = 200
	)
	measure := func(code string) time.Duration {
		start := time.Now()
		for i := 0; i < batchSize; i++ {
			verifier.Check(code)
		}
		return time.Since(start)
	}

	// Warm up validator caches before sampling
	for i := 0; i < 20; i++ {
		measure("923")
		measure("129")
	}

	first := make([]time.Duration, 0, samples)
	last := make([]time.Duration, 0, samples)
	for i := 0; i < samples; i++ {
		if i%2 == 0 {
			first = append(first, measure("923"))
			last = append(last, measure("129"))
		} else {
			last = append(last, measure("129"))
			first = append(first, measure("923"))
		}
	}

	slices.Sort(first)
	slices.Sort(last)
	medFirst, medLast := first[samples/2], last[samples/2]
	require.Positive(t, medLast)

	ratio := float64(medFirst) / float64(medLast)
	assert.InDelta(t, 1.0, ratio, 0.35,
		"median batch time first-digit mismatch %v vs last-digit mismatch %v", medFirst, medLast)
}

// Mismatches at the first and last digit should cost the same. Compare the
// ns/op of the sub-benchmarks.
func BenchmarkCredentialVerifier_Check(b *testing.B) {
	verifier, _ := auth.NewCredentialVerifier("123")

	for name, code := range map[string]string{
		"match":          "123",
		"mismatch_first": "923",
		"mismatch_last":  "129",
	} {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				verifier.Check(code)
			}
		})
	}
}
