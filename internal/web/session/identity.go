package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/rs/zerolog/log"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/models"
)

// IdentityStore binds signed in members to their session cookie.
//
// LogIn puts the member into the backing storage and sets the cookie,
// LogOut removes both. A storage failure during LogIn is fatal to the
// request, a member must never appear signed in without a server side
// session behind the cookie.
type IdentityStore struct {
	storage storage.Storage
	session config.Session
	devMode bool
}

// NewIdentityStore creates an identity store on the given storage
// backend.
func NewIdentityStore(store storage.Storage, cfg *config.Config) *IdentityStore {
	if store == nil {
		panic("storage is nil")
	}

	return &IdentityStore{
		storage: store,
		session: cfg.Webserver.Session,
		devMode: cfg.DevMode,
	}
}

// LogIn binds the user to a fresh session and sets the session cookie.
// With remember the cookie and the stored session outlive the browser
// window, otherwise the cookie is a browser session cookie.
func (s *IdentityStore) LogIn(c *fiber.Ctx, user *models.User, remember bool) error {
	sessionID, err := GenerateSessionID()
	if err != nil {
		return fmt.Errorf("failed to generate session ID: %w", err)
	}

	data := &Data{
		User:     *user,
		IssuedAt: time.Now(),
		Remember: remember,
	}

	ttl := s.session.ExpiryTime
	if remember {
		ttl = s.session.RememberTime
	}

	if err := data.write(s.storage, sessionID, ttl); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	maxAge := 0
	if remember {
		maxAge = int(s.session.RememberTime.Seconds())
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.session.CookieName,
		Value:    sessionID,
		MaxAge:   maxAge,
		Secure:   !s.devMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return nil
}

// LogOut removes the session behind the request's cookie and clears the
// cookie. Requests without a session pass through, logging out twice is
// fine.
func (s *IdentityStore) LogOut(c *fiber.Ctx) error {
	sessionID := c.Cookies(s.session.CookieName)
	if sessionID != "" {
		if err := s.storage.Delete(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.session.CookieName,
		Value:    "",
		MaxAge:   -1,
		Secure:   !s.devMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return nil
}

// Current resolves the request's cookie to the bound identity. Requests
// without a cookie, with an expired session or with unreadable session
// data resolve to ErrNoSession.
func (s *IdentityStore) Current(c *fiber.Ctx) (*Data, error) {
	sessionID := c.Cookies(s.session.CookieName)
	if sessionID == "" {
		return nil, ErrNoSession
	}

	data := new(Data)

	err := data.read(s.storage, sessionID)

	switch {
	case errors.Is(err, ErrNoSession):
		return nil, ErrNoSession
	case err != nil:
		log.Warn().Err(err).Msg("failed to read session")

		return nil, ErrNoSession
	}

	if data.User.ID == 0 {
		return nil, ErrNoSession
	}

	return data, nil
}
