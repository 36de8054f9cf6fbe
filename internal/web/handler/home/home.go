// Package home provides the member home page. It surfaces the one shot
// flash from the preceding flow, the member's profile and their recent
// sign in history.
package home

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/models"
	"github.com/go-membergate/membergate/internal/web/handler"
	"github.com/go-membergate/membergate/internal/web/navigation"
	websess "github.com/go-membergate/membergate/internal/web/session"
)

const (
	// Path is the path to the home page.
	Path = handler.RootPath + "home"

	// TemplateName is the name of the home template.
	TemplateName = "home/home"

	// DefaultPageSize is the default number of history rows per page.
	DefaultPageSize = 10

	maxPageSize = 50
)

// SignIn is one row of the member's sign in history.
type SignIn struct {
	When     time.Time
	Outcome  string
	Reason   string
	AuthType string
	RemoteIP string
}

// HistoryData carries the paginated sign in history.
type HistoryData struct {
	SignIns     []SignIn
	CurrentPage int
	PageSize    int
	TotalItems  int
	TotalPages  int
	HasPrevPage bool
	HasNextPage bool
	PrevPage    int
	NextPage    int
}

// Service is the home handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB

	deps *handler.Deps
}

// Handler is the home handler.
var Handler = Service{}

// Init initializes the home handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps
	s.cfg = deps.Cfg
	s.db = deps.DB

	app.Get(Path, s.Get)

	return nil
}

// Get handles the home page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	data, err := s.deps.Identity.Current(c)
	if err != nil {
		return c.Redirect("/login")
	}

	nav := navigation.NewContext("Home", "home", "home").
		AddBreadcrumb("Home", Path, true)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = DefaultPageSize
	}

	history, err := s.loadHistory(&data.User, page, pageSize)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", data.User.ID).Msg("failed to load sign in history")

		history = &HistoryData{CurrentPage: 1, PageSize: pageSize, TotalPages: 1}
	}

	viewData := fiber.Map{
		"Navigation": nav,
		"title":      s.cfg.Title,
		"User":       data.User,
		"History":    history,
	}

	if flash := s.takeFlash(c); flash != "" {
		viewData["flash"] = flash
	}

	return c.Render(TemplateName, viewData, handler.BaseLayout)
}

// takeFlash surfaces the pending one shot message, if any.
func (s *Service) takeFlash(c *fiber.Ctx) string {
	sess, err := s.deps.Forms.Get(c)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open form session")

		return ""
	}

	flash := websess.TakeFlash(sess)

	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save form session")
	}

	return flash
}

// loadHistory pages through the member's login attempts, newest first.
// Attempts against the member's identifier count too, even when they
// never resolved to the account.
func (s *Service) loadHistory(user *models.User, page, pageSize int) (*HistoryData, error) {
	query := s.db.Model(&models.LoginAttempt{}).
		Where("user_id = ? OR identifier = ?", user.ID, user.Username)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	totalPages := (int(total) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	var attempts []models.LoginAttempt

	err := query.
		Order("created_at desc").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	signIns := make([]SignIn, 0, len(attempts))
	for _, a := range attempts {
		signIns = append(signIns, SignIn{
			When:     a.CreatedAt,
			Outcome:  a.Outcome,
			Reason:   a.Reason,
			AuthType: a.AuthType,
			RemoteIP: a.RemoteIP,
		})
	}

	return &HistoryData{
		SignIns:     signIns,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  int(total),
		TotalPages:  totalPages,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
		PrevPage:    page - 1,
		NextPage:    page + 1,
	}, nil
}
