package login

import (
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"
)

// Form session keys for the login echo and the captured referer.
const (
	echoIdentifierKey = "login_identifier"
	echoRememberKey   = "login_remember"
	refererKey        = "login_referer"
)

// writeEcho stores the non secret parts of a failed attempt so the form
// can be re-rendered pre-filled. The secret never goes in here.
func writeEcho(sess *session.Session, identifier string, remember bool) {
	if sess == nil || identifier == "" {
		return
	}

	sess.Set(echoIdentifierKey, identifier)
	sess.Set(echoRememberKey, remember)
}

// readEcho returns the stored echo. The echo survives page reloads, it
// is only cleared by a successful login.
func readEcho(sess *session.Session) (string, bool) {
	if sess == nil {
		return "", false
	}

	identifier, _ := sess.Get(echoIdentifierKey).(string)
	remember, _ := sess.Get(echoRememberKey).(bool)

	return identifier, remember
}

// clearEcho drops the echo after a successful login.
func clearEcho(sess *session.Session) {
	if sess == nil {
		return
	}

	sess.Delete(echoIdentifierKey)
	sess.Delete(echoRememberKey)
}

// takeReferer returns the captured referer and clears it.
func takeReferer(sess *session.Session) string {
	if sess == nil {
		return ""
	}

	referer, _ := sess.Get(refererKey).(string)
	if referer != "" {
		sess.Delete(refererKey)
	}

	return referer
}

// saveFormSession persists the form session, tolerating a nil session
// and logging write failures. Losing the echo must not fail the
// request.
func saveFormSession(sess *session.Session) {
	if sess == nil {
		return
	}

	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save form session")
	}
}
