package loginpolicy

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/db/controller/setting"
	"github.com/go-membergate/membergate/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	// Migrate the schema
	err = db.AutoMigrate(&models.Setting{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestLoadDefaults(t *testing.T) {
	db := setupTestDB(t)

	settings := &Settings{}
	require.NoError(t, settings.Load(db))

	assert.Empty(t, settings.DefaultLoginDest)
	assert.True(t, settings.WelcomeFlashEnabled, "greeting defaults to enabled")
	assert.Empty(t, settings.PasswordMaxAge)
}

func TestSaveAndLoad(t *testing.T) {
	db := setupTestDB(t)

	saved := &Settings{
		DefaultLoginDest:    "/account",
		WelcomeFlashEnabled: false,
		PasswordMaxAge:      "720h",
	}
	require.NoError(t, saved.Save(db))

	loaded := &Settings{}
	require.NoError(t, loaded.Load(db))

	assert.Equal(t, saved, loaded)

	// the handlers read through the setting helpers, both views must agree
	assert.Equal(t, "/account", setting.DefaultLoginDest(db, "/home"))
	assert.False(t, setting.WelcomeFlashEnabled(db))
	assert.Equal(t, 720*time.Hour, setting.PasswordMaxAge(db, time.Hour))
}

func TestSaveEmptyValuesClearOverrides(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, (&Settings{DefaultLoginDest: "/account", PasswordMaxAge: "720h"}).Save(db))
	require.NoError(t, (&Settings{WelcomeFlashEnabled: true}).Save(db))

	assert.Equal(t, "/home", setting.DefaultLoginDest(db, "/home"))
	assert.Equal(t, time.Hour, setting.PasswordMaxAge(db, time.Hour))
}

func TestParsedPasswordMaxAge(t *testing.T) {
	testCases := []struct {
		name     string
		value    string
		expected time.Duration
		ok       bool
	}{
		{name: "empty disables override", value: "", expected: 0, ok: true},
		{name: "valid duration", value: "720h", expected: 720 * time.Hour, ok: true},
		{name: "malformed duration", value: "ninety days", expected: 0, ok: false},
		{name: "bare number", value: "90", expected: 0, ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := &Settings{PasswordMaxAge: tc.value}

			parsed, ok := settings.ParsedPasswordMaxAge()

			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, parsed)
		})
	}
}
