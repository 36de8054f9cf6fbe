// Package audit records the outcome of login attempts.
//
// The login handlers hand finished attempts to a Dispatcher, which fans
// them out to the configured recorders without blocking the request. A
// broken recorder can slow down or lose its own records but never the
// login itself.
package audit

import (
	"time"

	"github.com/go-membergate/membergate/internal/db/models"
)

// Attempt describes one finished login attempt. It carries no secret
// material, only the identifier the member typed and the surrounding
// request metadata.
type Attempt struct {
	// Identifier is the submitted account identifier. Empty when the
	// form did not carry one.
	Identifier string

	// Outcome is models.AttemptOutcomeSuccess or
	// models.AttemptOutcomeFailure.
	Outcome string

	// Reason classifies a failure, for example "invalid password". Empty
	// on success.
	Reason string

	// AuthType names the provider that handled the attempt.
	AuthType string

	// RemoteIP and UserAgent describe the client.
	RemoteIP  string
	UserAgent string

	// UserID is the matched account, zero when no account was resolved.
	UserID uint64

	// When is the time the attempt finished.
	When time.Time
}

// Success builds a successful attempt record for the given user.
func Success(user *models.User, authType, remoteIP, userAgent string) Attempt {
	return Attempt{
		Identifier: user.Username,
		Outcome:    models.AttemptOutcomeSuccess,
		AuthType:   authType,
		RemoteIP:   remoteIP,
		UserAgent:  userAgent,
		UserID:     user.ID,
		When:       time.Now(),
	}
}

// Failure builds a failed attempt record.
func Failure(identifier, reason, authType, remoteIP, userAgent string) Attempt {
	return Attempt{
		Identifier: identifier,
		Outcome:    models.AttemptOutcomeFailure,
		Reason:     reason,
		AuthType:   authType,
		RemoteIP:   remoteIP,
		UserAgent:  userAgent,
		When:       time.Now(),
	}
}

// Recorder persists or forwards one attempt record. Implementations
// are called from their own goroutine and may block without holding up
// the login request.
type Recorder interface {
	Record(attempt Attempt)
}
