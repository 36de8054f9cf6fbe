package site

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/controller/loginpolicy"
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

func newTestService(db *gorm.DB) *Service {
	return &Service{
		cfg:       &config.Config{},
		db:        db,
		validator: validator.New(),
	}
}

func TestService_Get_WithExistingSettings(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(db)

	settings := &loginpolicy.Settings{
		DefaultLoginDest:    "/account",
		WelcomeFlashEnabled: true,
		PasswordMaxAge:      "720h",
	}
	require.NoError(t, settings.Save(db))

	app := fiber.New(fiber.Config{
		Views: &mockTemplateEngine{},
	})
	app.Get("/settings/site", service.Get)

	req := httptest.NewRequest(http.MethodGet, "/settings/site", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestService_Get_WithoutSettings(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(db)

	app := fiber.New(fiber.Config{
		Views: &mockTemplateEngine{},
	})
	app.Get("/settings/site", service.Get)

	req := httptest.NewRequest(http.MethodGet, "/settings/site", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	// An empty settings table renders the form with defaults
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestService_Get_WithNilDatabase(t *testing.T) {
	service := newTestService(nil)

	app := fiber.New()
	app.Get("/settings/site", service.Get)

	req := httptest.NewRequest(http.MethodGet, "/settings/site", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestService_Post_Success(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(db)

	app := fiber.New(fiber.Config{
		Views: &mockTemplateEngine{},
	})
	app.Post("/settings/site", service.Post)

	formData := "default_login_dest=/account&welcome_flash_enabled=true&password_max_age=720h"
	req := httptest.NewRequest(http.MethodPost, "/settings/site", strings.NewReader(formData))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	loaded := &loginpolicy.Settings{}
	require.NoError(t, loaded.Load(db))
	assert.Equal(t, "/account", loaded.DefaultLoginDest)
	assert.True(t, loaded.WelcomeFlashEnabled)
	assert.Equal(t, "720h", loaded.PasswordMaxAge)
}

func TestService_Post_AbsoluteDestinationRejected(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(db)

	app := fiber.New(fiber.Config{
		Views: &mockTemplateEngine{},
	})
	app.Post("/settings/site", service.Post)

	// The destination must stay on this site
	formData := "default_login_dest=https://evil.example.com/"
	req := httptest.NewRequest(http.MethodPost, "/settings/site", strings.NewReader(formData))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestService_Post_MalformedAgeRejected(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(db)

	app := fiber.New(fiber.Config{
		Views: &mockTemplateEngine{},
	})
	app.Post("/settings/site", service.Post)

	formData := "password_max_age=ninety+days"
	req := httptest.NewRequest(http.MethodPost, "/settings/site", strings.NewReader(formData))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// nothing was written
	loaded := &loginpolicy.Settings{}
	require.NoError(t, loaded.Load(db))
	assert.Empty(t, loaded.PasswordMaxAge)
}

func TestService_Post_DatabaseError(t *testing.T) {
	// Using nil database to trigger save error
	service := newTestService(nil)

	app := fiber.New(fiber.Config{
		Views: &mockTemplateEngine{},
	})
	app.Post("/settings/site", service.Post)

	formData := "default_login_dest=/account"
	req := httptest.NewRequest(http.MethodPost, "/settings/site", strings.NewReader(formData))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

// mockTemplateEngine is a simple mock for testing.
type mockTemplateEngine struct{}

func (m *mockTemplateEngine) Load() error {
	return nil
}

func (m *mockTemplateEngine) Render(_ io.Writer, _ string, binding interface{}, _ ...string) error {
	// Check that Settings is in the binding
	if data, ok := binding.(fiber.Map); ok {
		if _, hasSettings := data["Settings"]; hasSettings {
			return nil
		}
	}
	return fiber.ErrInternalServerError
}
