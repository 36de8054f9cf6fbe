// Package setting provides typed access to site settings stored in the database.
package setting

import (
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
)

// Site settings understood by membergate. Values live in the settings
// table so operators can change them at runtime without a restart.
const (
	// KeyDefaultLoginDest overrides login.defaultdestination from the
	// config file when present.
	KeyDefaultLoginDest = "default_login_dest"
	// KeyWelcomeFlash switches the welcome back greeting on the fallback
	// redirect on or off. The greeting is enabled when the key is absent.
	KeyWelcomeFlash = "welcome_flash_enabled"
	// KeyPasswordMaxAge overrides login.passwordmaxage from the config
	// file when present. Stored in time.Duration notation, e.g. "720h".
	KeyPasswordMaxAge = "password_max_age"
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when accessing a setting with an empty name.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a setting by its name.
func Get(db *gorm.DB, name string) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var setting models.Setting
	result := db.Where(nameQueryPattern, name).First(&setting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, result.Error
	}

	return &setting, nil
}

// GetAll retrieves all settings from the database.
func GetAll(db *gorm.DB) ([]models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var settings []models.Setting
	result := db.Order("name").Find(&settings)
	if result.Error != nil {
		return nil, result.Error
	}

	return settings, nil
}

// Set creates or updates a setting by name (upsert operation).
func Set(db *gorm.DB, name string, value []byte) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var setting models.Setting
	result := db.Where(nameQueryPattern, name).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = models.Setting{
			Name:  name,
			Value: value,
		}

		if result = db.Create(&setting); result.Error != nil {
			return nil, result.Error
		}

		return &setting, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	// Setting exists, update it
	setting.Value = value
	result = db.Save(&setting)
	if result.Error != nil {
		return nil, result.Error
	}

	return &setting, nil
}

// Delete deletes a setting by name.
func Delete(db *gorm.DB, name string) error {
	if db == nil {
		return ErrDBNil
	}
	if name == "" {
		return ErrSettingNameEmpty
	}

	result := db.Where(nameQueryPattern, name).Delete(&models.Setting{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	return nil
}

// GetString returns a setting value as string. A missing setting returns
// the empty string, absence is a valid state and not an error.
func GetString(db *gorm.DB, name string) (string, error) {
	s, err := Get(db, name)
	if errors.Is(err, ErrSettingNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return string(s.Value), nil
}

// SetString stores a string setting.
func SetString(db *gorm.DB, name, value string) error {
	_, err := Set(db, name, []byte(value))
	return err
}

// GetBool returns a boolean setting. Missing or malformed values return
// the given fallback.
func GetBool(db *gorm.DB, name string, fallback bool) (bool, error) {
	raw, err := GetString(db, name)
	if err != nil || raw == "" {
		return fallback, err
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, nil
	}

	return v, nil
}

// SetBool stores a boolean setting.
func SetBool(db *gorm.DB, name string, value bool) error {
	return SetString(db, name, strconv.FormatBool(value))
}

// GetDuration returns a duration setting. Missing or malformed values
// return the given fallback.
func GetDuration(db *gorm.DB, name string, fallback time.Duration) (time.Duration, error) {
	raw, err := GetString(db, name)
	if err != nil || raw == "" {
		return fallback, err
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, nil
	}

	return v, nil
}

// DefaultLoginDest returns the post-login destination for members that
// arrive without a continuation target. The database setting wins over
// the config file value. An empty result means no destination is
// configured, which is a valid state handled by the caller.
func DefaultLoginDest(db *gorm.DB, configured string) string {
	dest, err := GetString(db, KeyDefaultLoginDest)
	if err != nil || dest == "" {
		return configured
	}

	return dest
}

// WelcomeFlashEnabled reports whether the welcome back greeting should be
// queued on the fallback redirect.
func WelcomeFlashEnabled(db *gorm.DB) bool {
	enabled, _ := GetBool(db, KeyWelcomeFlash, true)
	return enabled
}

// PasswordMaxAge returns the password age limit. The database setting
// wins over the config file value.
func PasswordMaxAge(db *gorm.DB, configured time.Duration) time.Duration {
	age, _ := GetDuration(db, KeyPasswordMaxAge, configured)
	return age
}
