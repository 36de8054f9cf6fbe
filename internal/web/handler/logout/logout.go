// Package logout terminates the member's session. Logging out is
// always allowed, with or without a live session, and always ends in a
// redirect.
package logout

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/i18n"
	"github.com/go-membergate/membergate/internal/web/handler"
	"github.com/go-membergate/membergate/internal/web/handler/login"
	websess "github.com/go-membergate/membergate/internal/web/session"
)

// Path is the path to the logout endpoint.
const Path = "/logout"

// Service is the logout handler service.
type Service struct {
	handler.Service
	cfg *config.Config

	deps       *handler.Deps
	translator *i18n.Translator
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps
	s.cfg = deps.Cfg

	s.translator = deps.Translator
	if s.translator == nil {
		s.translator = i18n.New()
	}

	// logout route (outside auth middleware protection)
	app.Get(Path, s.Logout)
	app.Post(Path, s.Logout)

	return nil
}

// Logout clears the session and sends the member back where they came
// from, or to the login page when the referer does not validate.
func (s *Service) Logout(c *fiber.Ctx) error {
	if err := s.deps.Identity.LogOut(c); err != nil {
		log.Error().Err(err).Msg("failed to log out")
	}

	s.setSignedOutFlash(c)

	clean, ok := handler.SanitizeBackURL(c.Get(fiber.HeaderReferer), s.cfg.Webserver.URL)
	if ok && !strings.HasPrefix(clean, login.Path) {
		return c.Redirect(clean)
	}

	return c.Redirect(login.Path)
}

// setSignedOutFlash leaves the confirmation for the next page render.
// The form session is separate from the identity session, so it
// survives the logout.
func (s *Service) setSignedOutFlash(c *fiber.Ctx) {
	sess, err := s.deps.Forms.Get(c)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open form session")

		return
	}

	websess.SetFlash(sess, s.translator.Sprintf(
		c.Get(fiber.HeaderAcceptLanguage), i18n.MsgSignedOut,
	))

	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save form session")
	}
}
