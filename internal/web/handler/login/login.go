package login

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/audit"
	"github.com/go-membergate/membergate/internal/auth"
	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/controller/setting"
	"github.com/go-membergate/membergate/internal/i18n"
	"github.com/go-membergate/membergate/internal/web/handler"
	websess "github.com/go-membergate/membergate/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	viewLogin = "login"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB

	deps       *handler.Deps
	translator *i18n.Translator

	localAuth *auth.LocalProvider
	ldapAuth  *auth.LDAPProvider
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps
	s.cfg = deps.Cfg
	s.db = deps.DB

	s.translator = deps.Translator
	if s.translator == nil {
		s.translator = i18n.New()
	}

	if s.cfg.Auth.LocalDB.Enabled {
		s.localAuth = auth.NewLocalProvider(s.db)
	}

	if s.cfg.Auth.LDAP.Enabled {
		ldapAuth, err := auth.NewLDAPProvider(s.cfg.Auth.LDAP, s.db)
		if err != nil {
			return fmt.Errorf("failed to initialize ldap provider: %w", err)
		}

		s.ldapAuth = ldapAuth
	}

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// Get handles the login page rendering. A pending echo from a failed
// attempt pre-fills the form, and the referer is captured for the post
// login fallback redirect.
func (s *Service) Get(c *fiber.Ctx) error {
	data := fiber.Map{
		"back_url": c.Query(handler.QueryBackURL),
	}

	sess := s.formSession(c)
	if sess != nil {
		identifier, remember := readEcho(sess)
		data["identifier"] = identifier
		data["remember"] = remember

		if flash := websess.TakeFlash(sess); flash != "" {
			data["flash"] = flash
		}

		s.captureReferer(c, sess)
		saveFormSession(sess)
	}

	return s.renderForm(c, data)
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	form := new(loginForm)
	if err := c.BodyParser(form); err != nil {
		log.Debug().Err(err).Msg("failed to parse login form")

		return s.renderForm(c, fiber.Map{
			"error": ErrInvalidFormData.Error(),
		})
	}

	sess := s.formSession(c)

	authType, errPick := s.pickAuthType(form.AuthType)
	if errPick != nil {
		return s.renderForm(c, fiber.Map{
			"error":      errPick.Error(),
			"identifier": form.Username,
			"remember":   form.Remember,
			"back_url":   form.BackURL,
		})
	}

	user, errAuth := s.authenticate(authType, form.credentials())
	if errAuth != nil {
		return s.failedLogin(c, sess, form, authType, errAuth)
	}

	// A session bind failure is fatal, the member must not look signed
	// in without a session behind the cookie.
	if errLogIn := s.deps.Identity.LogIn(c, user, form.Remember); errLogIn != nil {
		return fmt.Errorf("failed to bind session: %w", errLogIn)
	}

	clearEcho(sess)

	s.deps.Audit.Notify(audit.Success(user, authType, c.IP(), c.Get(fiber.HeaderUserAgent)))

	dest, welcome := s.decideRedirect(user, form.BackURL, takeReferer(sess))

	if welcome && sess != nil && setting.WelcomeFlashEnabled(s.db) {
		websess.SetFlash(sess, s.translator.Sprintf(
			c.Get(fiber.HeaderAcceptLanguage), i18n.MsgWelcomeBack, user.DisplayName(),
		))
	}

	saveFormSession(sess)

	return c.Redirect(dest)
}

// renderForm renders the login view with the provider toggles the
// template needs on every variant of the page.
func (s *Service) renderForm(c *fiber.Ctx, data fiber.Map) error {
	out := fiber.Map{
		"title":            s.cfg.Title,
		"local_db_enabled": s.cfg.Auth.LocalDB.Enabled,
		"ldap_enabled":     s.cfg.Auth.LDAP.Enabled,
		"oidc_enabled":     s.cfg.Auth.OIDC.Enabled,
	}

	for k, v := range data {
		out[k] = v
	}

	return c.Render(viewLogin, out)
}

// formSession opens the form session. The login flow has to work
// without one, so failures only log.
func (s *Service) formSession(c *fiber.Ctx) *session.Session {
	sess, err := s.deps.Forms.Get(c)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open form session")

		return nil
	}

	return sess
}
