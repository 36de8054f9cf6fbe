package oidc

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/audit"
	"github.com/go-membergate/membergate/internal/auth"
	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/controller/setting"
	"github.com/go-membergate/membergate/internal/web/handler"
	"github.com/go-membergate/membergate/internal/web/handler/home"
	"github.com/go-membergate/membergate/internal/web/handler/login"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = handler.RootPath + "auth/oidc/login"

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.RootPath + "auth/oidc/callback"

	// LogoutPath is the path for OIDC logout.
	LogoutPath = handler.RootPath + "auth/oidc/logout"

	// stateCookie carries the CSRF state between the redirect to the
	// identity provider and the callback.
	stateCookie = "oidc_state"

	// backURLCookie carries the member's original destination across
	// the provider round trip.
	backURLCookie = "oidc_back_url"

	stateTTL = 5 * time.Minute

	authTypeOIDC = "oidc"
)

// Service is the OIDC handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB

	deps         *handler.Deps
	oidcProvider *auth.OIDCProvider
}

// Handler is the OIDC handler.
var Handler = Service{}

// Init initializes the OIDC handler. A provider that cannot be reached
// at startup disables OIDC login instead of failing the whole
// application.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps
	s.cfg = deps.Cfg
	s.db = deps.DB

	if !s.cfg.Auth.OIDC.Enabled {
		return nil
	}

	oidcProvider, err := auth.NewOIDCProvider(context.Background(), s.cfg.Auth.OIDC, s.db)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize OIDC provider, OIDC login disabled")

		return nil
	}

	s.oidcProvider = oidcProvider

	log.Info().Msg("OIDC authentication provider initialized")

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)
	app.Get(LogoutPath, s.Logout)

	return nil
}

// Login initiates the OIDC login flow. The CSRF state and the member's
// requested destination ride along in short lived cookies until the
// provider calls back.
func (s *Service) Login(c *fiber.Ctx) error {
	if s.oidcProvider == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("OIDC authentication is not available")
	}

	state := auth.GenerateStateToken()
	s.setFlowCookie(c, stateCookie, state)

	if backURL := c.Query(handler.QueryBackURL); backURL != "" {
		s.setFlowCookie(c, backURLCookie, backURL)
	}

	return c.Redirect(s.oidcProvider.GetAuthURL(state))
}

// Callback handles the OIDC callback.
func (s *Service) Callback(c *fiber.Ctx) error {
	if s.oidcProvider == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("OIDC authentication is not available")
	}

	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		log.Error().Msg("missing code or state in OIDC callback")

		return c.Status(fiber.StatusBadRequest).SendString("Invalid callback parameters")
	}

	wantState := c.Cookies(stateCookie)
	s.clearFlowCookie(c, stateCookie)

	if wantState == "" || state != wantState {
		log.Error().Msg("state token mismatch in OIDC callback")

		return c.Status(fiber.StatusBadRequest).SendString("Invalid state token")
	}

	authenticatedUser, err := s.oidcProvider.HandleCallback(c.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("OIDC authentication failed")

		s.deps.Audit.Notify(audit.Failure(
			"", oidcFailureReason(err), authTypeOIDC, c.IP(), c.Get(fiber.HeaderUserAgent),
		))

		return c.Status(fiber.StatusUnauthorized).SendString("Authentication failed")
	}

	if err := s.deps.Identity.LogIn(c, authenticatedUser, false); err != nil {
		return errors.Join(errors.New("failed to bind session"), err)
	}

	s.deps.Audit.Notify(audit.Success(
		authenticatedUser, authTypeOIDC, c.IP(), c.Get(fiber.HeaderUserAgent),
	))

	log.Info().Str("username", authenticatedUser.Username).Msg("user logged in via OIDC")

	backURL := c.Cookies(backURLCookie)
	s.clearFlowCookie(c, backURLCookie)

	return c.Redirect(s.successRedirect(backURL))
}

// Logout clears the local session and hands off to the identity
// provider's logout endpoint when one is available.
func (s *Service) Logout(c *fiber.Ctx) error {
	if err := s.deps.Identity.LogOut(c); err != nil {
		log.Error().Err(err).Msg("failed to log out")
	}

	if s.oidcProvider != nil {
		if logoutURL := s.oidcProvider.GetLogoutURL("", s.cfg.Webserver.URL); logoutURL != "" {
			return c.Redirect(logoutURL)
		}
	}

	return c.Redirect(login.Path)
}

// successRedirect decides where the member lands after the provider
// round trip: their validated original destination, the configured
// default, the member home otherwise.
func (s *Service) successRedirect(backURL string) string {
	if clean, ok := handler.SanitizeBackURL(backURL, s.cfg.Webserver.URL); ok {
		return clean
	}

	if dest := setting.DefaultLoginDest(s.db, s.cfg.Login.DefaultDestination); dest != "" {
		return dest
	}

	return home.Path
}

func (s *Service) setFlowCookie(c *fiber.Ctx, name, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   int(stateTTL.Seconds()),
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func (s *Service) clearFlowCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		MaxAge:   -1,
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// oidcFailureReason classifies a callback failure for the audit trail.
func oidcFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return "account disabled"
	case errors.Is(err, auth.ErrNoIDToken):
		return "no id token"
	default:
		return "provider failure"
	}
}
