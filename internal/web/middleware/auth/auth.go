package auth

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/go-membergate/membergate/internal/db/controller/setting"
	"github.com/go-membergate/membergate/internal/web/handler"
	"github.com/go-membergate/membergate/internal/web/handler/changepassword"
	"github.com/go-membergate/membergate/internal/web/handler/home"
	"github.com/go-membergate/membergate/internal/web/handler/login"
	"github.com/go-membergate/membergate/internal/web/handler/logout"
)

// CurrentUserKey is the fiber locals key the middleware stores the
// authenticated member under.
const CurrentUserKey = "CurrentUser"

// publicPrefixes lists path prefixes that never require a session.
var publicPrefixes = []string{
	login.Path,
	logout.Path,
	"/auth/oidc",
	"/static",
	"/healthz",
	"/metrics",
}

// New returns a Fiber middleware that guards every page behind a
// session. Members without one are sent to the login page with their
// requested destination preserved, members with one are kept away from
// the login form and, while their password is expired, from everything
// but the change password page.
func New(deps *handler.Deps) fiber.Handler {
	if !deps.Valid() {
		panic(handler.ErrNilDepsFatalLogMsg)
	}

	return func(c *fiber.Ctx) error {
		requestPath := strings.ToLower(c.Path())

		sessData, err := deps.Identity.Current(c)
		if err != nil {
			if isPublic(requestPath) {
				return c.Next()
			}

			return c.Redirect(loginContinuation(c))
		}

		// Add the current member to locals for template access
		c.Locals(CurrentUserKey, &sessData.User)

		// A signed in member has no business on the login form.
		if strings.HasPrefix(requestPath, login.Path) {
			return c.Redirect(home.Path)
		}

		maxAge := setting.PasswordMaxAge(deps.DB, deps.Cfg.Login.PasswordMaxAge)
		if sessData.User.IsPasswordExpired(maxAge) && !expiryExempt(requestPath) {
			return c.Redirect(changepassword.Path)
		}

		return c.Next()
	}
}

// loginContinuation builds the login redirect for a member without a
// session. Page requests carry the original URL so the member lands
// where they were headed once they sign in.
func loginContinuation(c *fiber.Ctx) string {
	if c.Method() != fiber.MethodGet {
		return login.Path
	}

	original := c.OriginalURL()
	if original == "" || original == handler.RootPath {
		return login.Path
	}

	return login.Path + "?" + handler.QueryBackURL + "=" + url.QueryEscape(original)
}

func isPublic(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// expiryExempt reports whether a path stays reachable while the member
// must change an expired password.
func expiryExempt(path string) bool {
	if strings.HasPrefix(path, changepassword.Path) {
		return true
	}

	return isPublic(path)
}
