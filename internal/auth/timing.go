package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for response timing equalisation
type TimingConfig struct {
	BaseDelay      time.Duration // Minimum time a failed attempt takes
	RandomDelay    time.Duration // Upper bound of extra random jitter
	DelayOnSuccess bool          // If true, successful attempts are padded too
}

// TimingDelay pads gate responses so that every failure takes roughly the
// same time regardless of why it failed.
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// cryptoRandDuration returns a secure random duration in [0, max)
func cryptoRandDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0
	}

	return time.Duration(binary.BigEndian.Uint64(randomBytes) % uint64(max))
}

// Target returns the padded duration for one attempt: base plus jitter
func (td *TimingDelay) Target() time.Duration {
	return td.config.BaseDelay + cryptoRandDuration(td.config.RandomDelay)
}

// WaitFrom sleeps until at least Target() has elapsed since startTime.
// Work already done counts against the delay.
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	elapsed := time.Since(startTime)
	if target := td.Target(); elapsed < target {
		td.sleep(target - elapsed)
	}
}
