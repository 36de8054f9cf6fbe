package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/audit"
	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/models"
	"github.com/go-membergate/membergate/internal/i18n"
	websess "github.com/go-membergate/membergate/internal/web/session"
)

// Identity binds and resolves the signed in member for a request.
// session.IdentityStore is the production implementation, tests swap in
// spies.
type Identity interface {
	// LogIn binds the user to a fresh session. A failure here is fatal
	// to the request, the handler must not pretend the member is signed
	// in.
	LogIn(c *fiber.Ctx, user *models.User, remember bool) error

	// LogOut removes the request's session. Safe to call without one.
	LogOut(c *fiber.Ctx) error

	// Current resolves the request's cookie to the bound identity, or
	// session.ErrNoSession.
	Current(c *fiber.Ctx) (*websess.Data, error)
}

// Deps carries the collaborators shared by the web handlers.
type Deps struct {
	Cfg        *config.Config
	DB         *gorm.DB
	Identity   Identity
	Forms      *session.Store
	Audit      *audit.Dispatcher
	Translator *i18n.Translator
}

// Valid reports whether the required collaborators are present.
func (d *Deps) Valid() bool {
	return d != nil && d.Cfg != nil && d.DB != nil && d.Identity != nil && d.Forms != nil
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps *Deps) error
}
