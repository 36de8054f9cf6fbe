// Package changepassword lets a signed in member replace their
// password. Members with an expired password land here straight from
// login, with their original destination carried along so it is not
// lost to the detour.
package changepassword

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/auth"
	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/controller/setting"
	"github.com/go-membergate/membergate/internal/db/models"
	"github.com/go-membergate/membergate/internal/i18n"
	"github.com/go-membergate/membergate/internal/web/handler"
	"github.com/go-membergate/membergate/internal/web/handler/home"
	websess "github.com/go-membergate/membergate/internal/web/session"
)

const (
	// Path is the path to the change password page.
	Path = "/change-password"

	viewChangePassword = "changepassword"
)

// ErrPasswordMismatch is returned when the confirmation does not match
// the new password.
var ErrPasswordMismatch = errors.New("passwords do not match")

// ErrExternalAccount is returned when a directory or SSO account tries
// to change its password here.
var ErrExternalAccount = errors.New("password is managed by the external provider")

// Service is the change password handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB

	deps       *handler.Deps
	translator *i18n.Translator
	validate   *validator.Validate

	localAuth *auth.LocalProvider
}

// Handler is the change password handler.
var Handler = Service{}

// changeForm is the submitted change password form.
type changeForm struct {
	OldPassword     string `form:"old_password" validate:"required"`
	NewPassword     string `form:"new_password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=NewPassword"`
	BackURL         string `form:"back_url"`
}

// Init initializes the change password handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps
	s.cfg = deps.Cfg
	s.db = deps.DB
	s.validate = validator.New()
	s.localAuth = auth.NewLocalProvider(s.db)

	s.translator = deps.Translator
	if s.translator == nil {
		s.translator = i18n.New()
	}

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// Get renders the change password form.
func (s *Service) Get(c *fiber.Ctx) error {
	data, err := s.deps.Identity.Current(c)
	if err != nil {
		return c.Redirect("/login")
	}

	viewData := fiber.Map{
		"back_url": c.Query(handler.QueryBackURL),
		"username": data.User.Username,
	}

	maxAge := setting.PasswordMaxAge(s.db, s.cfg.Login.PasswordMaxAge)
	if data.User.IsPasswordExpired(maxAge) {
		viewData["notice"] = s.translator.Sprintf(
			c.Get(fiber.HeaderAcceptLanguage), i18n.MsgPasswordExpired,
		)
	}

	return s.render(c, viewData)
}

// Post handles the change password form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	data, err := s.deps.Identity.Current(c)
	if err != nil {
		return c.Redirect("/login")
	}

	form := new(changeForm)
	if err := c.BodyParser(form); err != nil {
		log.Debug().Err(err).Msg("failed to parse change password form")

		return s.render(c, fiber.Map{
			"error":    "invalid form data",
			"username": data.User.Username,
		})
	}

	if err := s.validate.Struct(form); err != nil {
		return s.render(c, fiber.Map{
			"error":    validationMessage(err),
			"username": data.User.Username,
			"back_url": form.BackURL,
		})
	}

	if data.User.AuthSource != models.AuthSourceLocal {
		return s.render(c, fiber.Map{
			"error":    ErrExternalAccount.Error(),
			"username": data.User.Username,
			"back_url": form.BackURL,
		})
	}

	err = s.localAuth.ChangePassword(data.User.ID, form.OldPassword, form.NewPassword)

	switch {
	case errors.Is(err, auth.ErrInvalidOldPassword):
		return s.render(c, fiber.Map{
			"error":    err.Error(),
			"username": data.User.Username,
			"back_url": form.BackURL,
		})
	case err != nil:
		return fmt.Errorf("failed to change password: %w", err)
	}

	// The stored session still carries the expired flag, rebind so the
	// next request sees the fresh state.
	user, err := s.localAuth.GetUserByID(data.User.ID)
	if err != nil {
		return fmt.Errorf("failed to reload user: %w", err)
	}

	if err := s.deps.Identity.LogIn(c, user, data.Remember); err != nil {
		return fmt.Errorf("failed to rebind session: %w", err)
	}

	s.setChangedFlash(c)

	return c.Redirect(s.successRedirect(form.BackURL))
}

// successRedirect decides where a member goes after changing their
// password: the carried back URL when it validates, the configured
// default destination, the member home otherwise.
func (s *Service) successRedirect(backURL string) string {
	if clean, ok := handler.SanitizeBackURL(backURL, s.cfg.Webserver.URL); ok {
		return clean
	}

	if dest := setting.DefaultLoginDest(s.db, s.cfg.Login.DefaultDestination); dest != "" {
		return dest
	}

	return home.Path
}

func (s *Service) setChangedFlash(c *fiber.Ctx) {
	sess, err := s.deps.Forms.Get(c)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open form session")

		return
	}

	websess.SetFlash(sess, s.translator.Sprintf(
		c.Get(fiber.HeaderAcceptLanguage), i18n.MsgPasswordChanged,
	))

	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save form session")
	}
}

func (s *Service) render(c *fiber.Ctx, data fiber.Map) error {
	out := fiber.Map{
		"title": s.cfg.Title,
	}

	for k, v := range data {
		out[k] = v
	}

	return c.Render(viewChangePassword, out)
}

// validationMessage flattens a validator error into one line the form
// can show.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid form data"
	}

	for _, fe := range verrs {
		switch {
		case fe.Field() == "ConfirmPassword":
			return ErrPasswordMismatch.Error()
		case fe.Tag() == "min":
			return "the new password must be at least " + fe.Param() + " characters"
		}
	}

	return "all password fields are required"
}
