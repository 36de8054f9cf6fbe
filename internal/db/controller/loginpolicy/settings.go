// Package loginpolicy provides typed access to the runtime adjustable
// login behavior stored in the settings table.
package loginpolicy

import (
	"time"

	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/db/controller/setting"
)

type (
	// Settings represents the login policy an operator can change at
	// runtime. Empty values mean the config file value applies.
	Settings struct {
		// DefaultLoginDest is the site relative destination members land
		// on after login when they arrive without one of their own.
		DefaultLoginDest string `form:"default_login_dest" json:"defaultLoginDest" validate:"omitempty,startswith=/"`
		// WelcomeFlashEnabled switches the welcome back greeting on the
		// fallback redirect on or off.
		WelcomeFlashEnabled bool `form:"welcome_flash_enabled" json:"welcomeFlashEnabled"`
		// PasswordMaxAge is the password age limit in time.Duration
		// notation, e.g. "720h". Empty disables the database override.
		PasswordMaxAge string `form:"password_max_age" json:"passwordMaxAge" validate:"omitempty"`
	}
)

// Load loads the login policy from the database.
func (p *Settings) Load(db *gorm.DB) error {
	dest, err := setting.GetString(db, setting.KeyDefaultLoginDest)
	if err != nil {
		return err
	}

	welcome, err := setting.GetBool(db, setting.KeyWelcomeFlash, true)
	if err != nil {
		return err
	}

	maxAge, err := setting.GetString(db, setting.KeyPasswordMaxAge)
	if err != nil {
		return err
	}

	p.DefaultLoginDest = dest
	p.WelcomeFlashEnabled = welcome
	p.PasswordMaxAge = maxAge

	return nil
}

// Save saves the login policy to the database.
func (p *Settings) Save(db *gorm.DB) error {
	if err := setting.SetString(db, setting.KeyDefaultLoginDest, p.DefaultLoginDest); err != nil {
		return err
	}

	if err := setting.SetBool(db, setting.KeyWelcomeFlash, p.WelcomeFlashEnabled); err != nil {
		return err
	}

	return setting.SetString(db, setting.KeyPasswordMaxAge, p.PasswordMaxAge)
}

// ParsedPasswordMaxAge returns the password age limit as a duration. An
// empty value yields zero with ok true, a malformed value yields ok
// false.
func (p *Settings) ParsedPasswordMaxAge() (time.Duration, bool) {
	if p.PasswordMaxAge == "" {
		return 0, true
	}

	d, err := time.ParseDuration(p.PasswordMaxAge)
	if err != nil {
		return 0, false
	}

	return d, true
}
