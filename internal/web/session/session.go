// Package session manages the two kinds of browser state the web
// interface keeps. The identity session binds a signed in member to
// their cookie and lives in the IdentityStore. The form session is
// short lived state around the login form: the non secret echo of a
// failed attempt, the captured referer and one shot flash messages.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/storage"

	"github.com/go-membergate/membergate/internal/db/models"
)

// ErrNoSession is returned when a request carries no valid identity
// session.
var ErrNoSession = errors.New("no session")

// Data represents the identity bound to a session.
type Data struct {
	User models.User

	// IssuedAt is the time the session was bound.
	IssuedAt time.Time

	// Remember marks sessions that outlive the browser window.
	Remember bool
}

// write stores the session data under the given session ID with an
// expiration duration.
func (s *Data) write(store storage.Storage, sessionID string, exp time.Duration) error {
	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return store.Set(sessionID, out, exp)
}

// read loads the session data for the given session ID.
func (s *Data) read(store storage.Storage, sessionID string) error {
	byteData, err := store.Get(sessionID)
	if err != nil {
		return err
	}

	if len(byteData) == 0 {
		return ErrNoSession
	}

	return json.Unmarshal(byteData, s)
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
