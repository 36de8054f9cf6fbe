package models

import (
	"time"
)

// Outcomes recorded in the login journal.
const (
	AttemptOutcomeSuccess = "success"
	AttemptOutcomeFailure = "failure"
)

// LoginAttempt is one journal row per authentication attempt. Rows are
// written asynchronously by the audit dispatcher and feed the sign-in
// history shown on the home page.
type LoginAttempt struct {
	// ID is a uuid assigned by the recorder.
	ID string `gorm:"primaryKey;size:36"`
	// Identifier is the submitted login identifier, never the secret.
	Identifier string `gorm:"size:255;index"`
	// Outcome is success or failure.
	Outcome string `gorm:"size:16;not null"`
	// Reason describes a failure, e.g. "invalid password".
	Reason string `gorm:"size:100"`
	// AuthType names the provider that handled the attempt.
	AuthType string `gorm:"size:20"`
	// RemoteIP of the client.
	RemoteIP string `gorm:"size:45"`
	// UserAgent of the client.
	UserAgent string `gorm:"size:255"`
	// UserID links successful attempts to the account, 0 otherwise.
	UserID uint64 `gorm:"index"`
	// CreatedAt is the timestamp of the attempt (managed by GORM).
	CreatedAt time.Time
}
