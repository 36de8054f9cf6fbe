package home_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/models"
	"github.com/go-membergate/membergate/internal/i18n"
	"github.com/go-membergate/membergate/internal/web/handler"
	"github.com/go-membergate/membergate/internal/web/handler/home"
	websess "github.com/go-membergate/membergate/internal/web/session"
)

type stubIdentity struct {
	data    *websess.Data
	currErr error
}

func (s *stubIdentity) LogIn(_ *fiber.Ctx, _ *models.User, _ bool) error {
	return nil
}

func (s *stubIdentity) LogOut(_ *fiber.Ctx) error {
	return nil
}

func (s *stubIdentity) Current(_ *fiber.Ctx) (*websess.Data, error) {
	if s.currErr != nil {
		return nil, s.currErr
	}

	return s.data, nil
}

// historyViews dumps the view binding as greppable text instead of
// rendering templates.
type historyViews struct{}

func (historyViews) Load() error { return nil }

func (historyViews) Render(w io.Writer, name string, binding interface{}, _ ...string) error {
	fmt.Fprintf(w, "view=%s", name)

	m, ok := binding.(fiber.Map)
	if !ok {
		return nil
	}

	if user, ok := m["User"].(models.User); ok {
		fmt.Fprintf(w, ";user=%s", user.Username)
	}

	if history, ok := m["History"].(*home.HistoryData); ok {
		fmt.Fprintf(w, ";rows=%d;total=%d;page=%d;pages=%d;prev=%t;next=%t",
			len(history.SignIns), history.TotalItems, history.CurrentPage,
			history.TotalPages, history.HasPrevPage, history.HasNextPage)
	}

	if flash, ok := m["flash"].(string); ok {
		fmt.Fprintf(w, ";flash=%s", flash)
	}

	return nil
}

type homeEnv struct {
	app      *fiber.App
	db       *gorm.DB
	identity *stubIdentity
	user     *models.User
}

func setupHome(t *testing.T) *homeEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Setting{}, &models.LoginAttempt{}))

	user := &models.User{
		Active:     true,
		Username:   "bob",
		Email:      "bob@example.com",
		FirstName:  "Bob",
		AuthSource: models.AuthSourceLocal,
	}
	require.NoError(t, db.Create(user).Error)

	identity := &stubIdentity{data: &websess.Data{User: *user}}

	deps := &handler.Deps{
		Cfg: &config.Config{
			Title:     "MemberGate Test",
			Webserver: config.Webserver{Port: 8080, URL: "http://localhost:8080"},
		},
		DB:         db,
		Identity:   identity,
		Forms:      websess.NewFormStore(memory.New()),
		Translator: i18n.New(),
	}

	app := fiber.New(fiber.Config{Views: historyViews{}})

	svc := home.Service{}
	require.NoError(t, svc.Init(app, deps))

	// leaves a flash behind, stands in for the login flow doing the same
	app.Get("/setflash", func(c *fiber.Ctx) error {
		sess, err := deps.Forms.Get(c)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		websess.SetFlash(sess, "Welcome back, Bob!")

		if err := sess.Save(); err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.SendStatus(fiber.StatusOK)
	})

	return &homeEnv{app: app, db: db, identity: identity, user: user}
}

// recordAttempts journals count rows against the member, oldest first.
func (e *homeEnv) recordAttempts(t *testing.T, count int, outcome string) {
	t.Helper()

	base := time.Now().Add(-time.Duration(count) * time.Minute)

	for i := 0; i < count; i++ {
		row := models.LoginAttempt{
			ID:         uuid.NewString(),
			Identifier: e.user.Username,
			Outcome:    outcome,
			AuthType:   "local",
			RemoteIP:   "192.0.2.10",
			UserID:     e.user.ID,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, e.db.Create(&row).Error)
	}
}

func (e *homeEnv) get(t *testing.T, target string, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestGet_AnonymousIsSentToLogin(t *testing.T) {
	env := setupHome(t)
	env.identity.currErr = websess.ErrNoSession

	resp, _ := env.get(t, home.Path)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestGet_ShowsProfileAndHistory(t *testing.T) {
	env := setupHome(t)
	env.recordAttempts(t, 3, models.AttemptOutcomeSuccess)

	resp, body := env.get(t, home.Path)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "view=home/home")
	assert.Contains(t, body, "user=bob")
	assert.Contains(t, body, "rows=3;total=3;page=1;pages=1;prev=false;next=false")
}

func TestGet_HistoryCountsAttemptsAgainstTheIdentifier(t *testing.T) {
	env := setupHome(t)

	// a failure that never resolved to the account still shows up
	row := models.LoginAttempt{
		ID:         uuid.NewString(),
		Identifier: env.user.Username,
		Outcome:    models.AttemptOutcomeFailure,
		Reason:     "invalid password",
		AuthType:   "local",
		UserID:     0,
	}
	require.NoError(t, env.db.Create(&row).Error)

	// someone else's attempts stay invisible
	other := models.LoginAttempt{
		ID:         uuid.NewString(),
		Identifier: "mallory",
		Outcome:    models.AttemptOutcomeFailure,
		Reason:     "unknown user",
		AuthType:   "local",
		UserID:     0,
	}
	require.NoError(t, env.db.Create(&other).Error)

	_, body := env.get(t, home.Path)

	assert.Contains(t, body, "rows=1;total=1")
}

func TestGet_PaginatesHistory(t *testing.T) {
	env := setupHome(t)
	env.recordAttempts(t, 25, models.AttemptOutcomeSuccess)

	_, body := env.get(t, home.Path+"?page=2")
	assert.Contains(t, body, "rows=10;total=25;page=2;pages=3;prev=true;next=true")

	// pages beyond the end clamp to the last page
	_, body = env.get(t, home.Path+"?page=99")
	assert.Contains(t, body, "rows=5;total=25;page=3;pages=3;prev=true;next=false")
}

func TestGet_BadPagingParametersFallBackToDefaults(t *testing.T) {
	env := setupHome(t)
	env.recordAttempts(t, 5, models.AttemptOutcomeSuccess)

	_, body := env.get(t, home.Path+"?page=-3&pageSize=9999")

	assert.Contains(t, body, "rows=5;total=5;page=1")
}

func TestGet_FlashIsShownExactlyOnce(t *testing.T) {
	env := setupHome(t)

	resp, _ := env.get(t, "/setflash")

	var formCookie *http.Cookie

	for _, c := range resp.Cookies() {
		if c.Name == "form_session" {
			formCookie = c
		}
	}

	require.NotNil(t, formCookie)

	cookie := &http.Cookie{Name: formCookie.Name, Value: formCookie.Value}

	_, body := env.get(t, home.Path, cookie)
	assert.Contains(t, body, "flash=Welcome back, Bob!")

	_, body = env.get(t, home.Path, cookie)
	assert.NotContains(t, body, "flash=")
}
