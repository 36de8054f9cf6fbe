package login

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/go-membergate/membergate/internal/db/controller/setting"
	"github.com/go-membergate/membergate/internal/db/models"
	"github.com/go-membergate/membergate/internal/web/handler"
	"github.com/go-membergate/membergate/internal/web/handler/changepassword"
)

// decideRedirect picks where a freshly signed in member goes. The rules
// apply in strict order, the first match wins:
//
//  1. An expired password sends the member to the change password form,
//     with the requested destination carried along.
//  2. A validated back URL from the form.
//  3. The configured default login destination.
//  4. The referer captured when the form was rendered, or the login
//     page itself. Only this fallback gets the welcome flash.
//
// An invalid back URL is dropped silently and falls through to the next
// rule, the member never sees an error for it.
func (s *Service) decideRedirect(user *models.User, backURL, referer string) (string, bool) {
	maxAge := setting.PasswordMaxAge(s.db, s.cfg.Login.PasswordMaxAge)
	if user.IsPasswordExpired(maxAge) {
		dest := changepassword.Path
		if backURL != "" {
			dest += "?" + handler.QueryBackURL + "=" + url.QueryEscape(backURL)
		}

		return dest, false
	}

	if clean, ok := handler.SanitizeBackURL(backURL, s.cfg.Webserver.URL); ok {
		return clean, false
	}

	if dest := setting.DefaultLoginDest(s.db, s.cfg.Login.DefaultDestination); dest != "" {
		return dest, false
	}

	if referer != "" {
		return referer, true
	}

	return Path, true
}

// captureReferer remembers where the member came from so a successful
// login can send them back when nothing better is configured. Only same
// site referers are kept, and never the login page itself.
func (s *Service) captureReferer(c *fiber.Ctx, sess *session.Session) {
	clean, ok := handler.SanitizeBackURL(c.Get(fiber.HeaderReferer), s.cfg.Webserver.URL)
	if !ok || strings.HasPrefix(clean, Path) {
		return
	}

	sess.Set(refererKey, clean)
}
