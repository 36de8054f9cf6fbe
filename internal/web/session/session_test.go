package session

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/models"
)

func testConfig(devMode bool) *config.Config {
	return &config.Config{
		DevMode: devMode,
		Webserver: config.Webserver{
			Session: config.Session{
				CookieName:   "session",
				ExpiryTime:   time.Minute,
				RememberTime: time.Hour,
			},
		},
	}
}

// identityTestApp wires an IdentityStore into a minimal app with login,
// logout and whoami routes.
func identityTestApp(store *IdentityStore) *fiber.App {
	app := fiber.New()

	app.Get("/login", func(c *fiber.Ctx) error {
		remember := c.Query("remember") == "1"

		return store.LogIn(c, &models.User{ID: 7, Username: "jdoe"}, remember)
	})

	app.Get("/logout", func(c *fiber.Ctx) error {
		return store.LogOut(c)
	})

	app.Get("/whoami", func(c *fiber.Ctx) error {
		data, err := store.Current(c)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		return c.SendString(data.User.Username)
	})

	return app
}

func sessionCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}

	return nil
}

func TestIdentityStoreLogIn(t *testing.T) {
	store := NewIdentityStore(memory.New(), testConfig(false))
	app := identityTestApp(store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	cookie := sessionCookie(t, resp, "session")
	require.NotNil(t, cookie, "expected a session cookie")

	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)
	// Browser session cookie, no Max-Age.
	assert.Equal(t, 0, cookie.MaxAge)

	// The cookie resolves back to the member.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)

	whoResp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer func() { _ = whoResp.Body.Close() }()

	require.Equal(t, http.StatusOK, whoResp.StatusCode)

	body, _ := io.ReadAll(whoResp.Body)
	assert.Equal(t, "jdoe", string(body))
}

func TestIdentityStoreLogInRemember(t *testing.T) {
	store := NewIdentityStore(memory.New(), testConfig(false))
	app := identityTestApp(store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login?remember=1", nil), -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	cookie := sessionCookie(t, resp, "session")
	require.NotNil(t, cookie)

	// Persistent cookie carrying the remember lifetime.
	assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)
}

func TestIdentityStoreDevModeCookie(t *testing.T) {
	store := NewIdentityStore(memory.New(), testConfig(true))
	app := identityTestApp(store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	cookie := sessionCookie(t, resp, "session")
	require.NotNil(t, cookie)
	assert.False(t, cookie.Secure)
}

func TestIdentityStoreLogOut(t *testing.T) {
	store := NewIdentityStore(memory.New(), testConfig(false))
	app := identityTestApp(store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	cookie := sessionCookie(t, resp, "session")
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)

	logoutResp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer func() { _ = logoutResp.Body.Close() }()

	cleared := sessionCookie(t, logoutResp, "session")
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	// The stored session is gone, the old cookie no longer resolves.
	whoReq := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	whoReq.AddCookie(cookie)

	whoResp, err := app.Test(whoReq, -1)
	require.NoError(t, err)

	defer func() { _ = whoResp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, whoResp.StatusCode)
}

func TestIdentityStoreLogOutWithoutSession(t *testing.T) {
	store := NewIdentityStore(memory.New(), testConfig(false))
	app := identityTestApp(store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/logout", nil), -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIdentityStoreCurrentWithoutCookie(t *testing.T) {
	store := NewIdentityStore(memory.New(), testConfig(false))
	app := identityTestApp(store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil), -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIdentityStoreCurrentWithBogusCookie(t *testing.T) {
	store := NewIdentityStore(memory.New(), testConfig(false))
	app := identityTestApp(store)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "not-a-session"})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFlashReadOnce(t *testing.T) {
	forms := NewFormStore(memory.New())
	app := fiber.New()

	app.Get("/set", func(c *fiber.Ctx) error {
		sess, err := forms.Get(c)
		if err != nil {
			return err
		}

		SetFlash(sess, "Welcome back, Jane!")

		return sess.Save()
	})

	app.Get("/take", func(c *fiber.Ctx) error {
		sess, err := forms.Get(c)
		if err != nil {
			return err
		}

		msg := TakeFlash(sess)

		if err := sess.Save(); err != nil {
			return err
		}

		return c.SendString(msg)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/set", nil), -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	cookie := sessionCookie(t, resp, "form_session")
	require.NotNil(t, cookie, "expected a form session cookie")

	read := func() string {
		req := httptest.NewRequest(http.MethodGet, "/take", nil)
		req.AddCookie(cookie)

		takeResp, errTest := app.Test(req, -1)
		require.NoError(t, errTest)

		defer func() { _ = takeResp.Body.Close() }()

		body, _ := io.ReadAll(takeResp.Body)

		return string(body)
	}

	// First read surfaces the message, the second comes up empty.
	assert.Equal(t, "Welcome back, Jane!", read())
	assert.Empty(t, read())
}
