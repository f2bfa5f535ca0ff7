package models

import "time"

// AttemptRecord tracks failed gate attempts for a single client key.
// LockoutDeadline is fixed when the record is created; later failures only
// increment FailureCount.
type AttemptRecord struct {
	ClientKey       string    `db:"client_key"`
	FailureCount    int       `db:"failure_count"`
	LockoutDeadline time.Time `db:"lockout_deadline"`

	// SuppressedAlerts counts lockouts not alerted on since the previous alert
	SuppressedAlerts int `db:"-"`
}

// Expired reports whether the record's window has passed at now.
func (r *AttemptRecord) Expired(now time.Time) bool {
	return now.After(r.LockoutDeadline)
}
