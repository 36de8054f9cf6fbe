package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/go-membergate/membergate/internal/config"
	accesslog "github.com/go-membergate/membergate/internal/logger/adapter/fiber"
	"github.com/go-membergate/membergate/internal/logger/adapter/stdlogger"
	"github.com/go-membergate/membergate/internal/web/handler"
	oidchandler "github.com/go-membergate/membergate/internal/web/handler/auth/oidc"
	"github.com/go-membergate/membergate/internal/web/handler/changepassword"
	"github.com/go-membergate/membergate/internal/web/handler/home"
	"github.com/go-membergate/membergate/internal/web/handler/login"
	"github.com/go-membergate/membergate/internal/web/handler/logout"
	sitesettings "github.com/go-membergate/membergate/internal/web/handler/settings/site"
	authmiddleware "github.com/go-membergate/membergate/internal/web/middleware/auth"
)

const (
	// HealthPath answers load balancer liveness probes.
	HealthPath = "/healthz"

	// MetricsPath exposes the prometheus registry.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	deps         *handler.Deps
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	// Wait interrupt or shutdown request through /shutdown
	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so the health check returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// healthz reports liveness. During the graceful shutdown window it
// turns 503 so load balancers drain this instance.
func (s *Service) healthz(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("ok")
}

// New creates a new web service with the given configuration and
// handler dependencies.
func New(deps *handler.Deps) (*Service, error) {
	if !deps.Valid() {
		return nil, errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	cfg := deps.Cfg

	httpFS := http.FS(templateEmbedFS{embeddedTemplates})
	templateEngine := html.NewFileSystem(httpFS, ".gohtml")

	// in debug mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("debug mode enabled: using local filesystem for templates")
	}

	// Add template helper functions
	templateEngine.AddFunc("iterate", func(count int) []int {
		result := make([]int, count)
		for i := range result {
			result[i] = i
		}

		return result
	})
	templateEngine.AddFunc("add", func(a, b int) int {
		return a + b
	})
	templateEngine.AddFunc("sub", func(a, b int) int {
		return a - b
	})

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "MemberGate",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			Views:          templateEngine,
		},
	)

	app.Use(requestid.New())

	app.Use(accesslog.New(accesslog.Config{
		Config:    cfg.Log,
		HealthURI: HealthPath,
	}))

	if !cfg.Webserver.DisableRecover {
		app.Use(fiberrecover.New())
	}

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:       http.FS(embeddedStaticFiles),
				PathPrefix: "static",
				Browse:     cfg.Webserver.BrowseStatic,
			},
		),
	)

	// init web service
	service := &Service{
		cfg:  cfg,
		App:  app,
		deps: deps,
	}
	service.alive.Store(true)

	app.Get(HealthPath, service.healthz)

	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{ErrorLog: stdlogger.New()},
	)))

	// session middleware
	app.Use(authmiddleware.New(deps))

	// init handlers (they register their own routes)
	services := []handler.Service{
		&login.Handler,
		&logout.Handler,
		&changepassword.Handler,
		&home.Handler,
		&sitesettings.Handler,
		&oidchandler.Handler,
	}

	for _, svc := range services {
		if err := svc.Init(app, deps); err != nil {
			return nil, fmt.Errorf("failed to initialize web handler: %w", err)
		}
	}

	// redirect root to the member home
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(home.Path)
	})

	return service, nil
}
