package site

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/controller/loginpolicy"
	"github.com/go-membergate/membergate/internal/web/handler"
	"github.com/go-membergate/membergate/internal/web/handler/home"
	"github.com/go-membergate/membergate/internal/web/navigation"
)

const (
	// Path is the path to the site settings page.
	Path = "settings/site"
)

// Service is the site settings handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the site settings handler.
var Handler = Service{}

// Init initializes the site settings handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.cfg = deps.Cfg
	s.db = deps.DB
	s.validator = validator.New()

	// register routes
	app.Route("/"+Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// Get handles the site settings page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	settings := &loginpolicy.Settings{}
	if err := settings.Load(s.db); err != nil {
		log.Error().Err(err).Msg("failed to load site settings")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load settings")
	}

	return c.Render(Path, fiber.Map{
		"Settings":   settings,
		"Navigation": s.navigation(),
	}, handler.BaseLayout)
}

// Post handles the site settings form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	nav := s.navigation()

	settings := &loginpolicy.Settings{}
	if err := c.BodyParser(settings); err != nil {
		log.Error().Err(err).Msg("failed to parse site settings form")

		return c.Status(fiber.StatusBadRequest).Render(Path, fiber.Map{
			"Settings":   settings,
			"Navigation": nav,
			"Error":      "Invalid form data",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(settings); err != nil {
		var validationErrors validator.ValidationErrors
		errors.As(err, &validationErrors)
		errorMessages := make([]string, len(validationErrors))
		for i, ve := range validationErrors {
			errorMessages[i] = "Field '" + ve.Field() + "' failed validation tag '" + ve.Tag() + "'"
		}

		log.Error().Err(err).Msg("validation failed for site settings")

		return c.Status(fiber.StatusBadRequest).Render(Path, fiber.Map{
			"Settings":   settings,
			"Navigation": nav,
			"Error":      strings.Join(errorMessages, ", "),
		}, handler.BaseLayout)
	}

	if _, ok := settings.ParsedPasswordMaxAge(); !ok {
		return c.Status(fiber.StatusBadRequest).Render(Path, fiber.Map{
			"Settings":   settings,
			"Navigation": nav,
			"Error":      "Password age limit must be a duration such as 720h",
		}, handler.BaseLayout)
	}

	if err := settings.Save(s.db); err != nil {
		log.Error().Err(err).Msg("failed to save site settings")

		return c.Status(fiber.StatusInternalServerError).Render(Path, fiber.Map{
			"Settings":   settings,
			"Navigation": nav,
			"Error":      "Failed to save settings",
		}, handler.BaseLayout)
	}

	log.Info().
		Str("default_login_dest", settings.DefaultLoginDest).
		Bool("welcome_flash_enabled", settings.WelcomeFlashEnabled).
		Str("password_max_age", settings.PasswordMaxAge).
		Msg("site settings saved successfully")

	return c.Render(Path, fiber.Map{
		"Settings":   settings,
		"Navigation": nav,
		"Success":    "Settings saved successfully",
	}, handler.BaseLayout)
}

func (s *Service) navigation() *navigation.Context {
	return navigation.NewContext("Site Settings", "settings", "site").
		AddBreadcrumb("Home", home.Path, false).
		AddBreadcrumb("Settings", "#", false).
		AddBreadcrumb("Site", "/"+Path, true)
}
