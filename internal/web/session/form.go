package session

import (
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage"
)

// FlashKey is the form session key holding the one shot display
// message.
const FlashKey = "flash"

// formSessionTTL bounds how long abandoned form state is kept around.
const formSessionTTL = 30 * time.Minute

// NewFormStore creates the store for short lived form state. It rides
// on its own cookie so clearing or expiring it never touches the
// identity session.
func NewFormStore(store storage.Storage) *session.Store {
	if store == nil {
		panic("storage is nil")
	}

	return session.New(session.Config{
		Storage:        store,
		KeyLookup:      "cookie:form_session",
		Expiration:     formSessionTTL,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
}

// SetFlash stores a one shot message surfaced on the next page render.
func SetFlash(sess *session.Session, message string) {
	sess.Set(FlashKey, message)
}

// TakeFlash returns the pending flash message and clears it, so the
// message is shown exactly once. Returns an empty string when no
// message is pending.
func TakeFlash(sess *session.Session) string {
	value, ok := sess.Get(FlashKey).(string)
	if !ok {
		return ""
	}

	sess.Delete(FlashKey)

	return value
}
