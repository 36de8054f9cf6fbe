// Package daemon wires configuration, database, session storage and the
// web service into a running application.
package daemon

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/storage"
	"github.com/gofiber/storage/memory/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/audit"
	"github.com/go-membergate/membergate/internal/auth"
	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/dsn"
	"github.com/go-membergate/membergate/internal/db/models"
	"github.com/go-membergate/membergate/internal/i18n"
	gormlogger "github.com/go-membergate/membergate/internal/logger/adapter/gorm"
	"github.com/go-membergate/membergate/internal/web"
	"github.com/go-membergate/membergate/internal/web/handler"
	websess "github.com/go-membergate/membergate/internal/web/session"
)

// sessionGCInterval is how often the in memory session store sweeps
// expired sessions.
const sessionGCInterval = 10 * time.Second

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
	audit      *audit.Dispatcher
	addr       string
}

// Start starts the Daemon's web service and blocks until it stops.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	err := d.webService.Start(d.addr)

	// let in flight audit events drain before the process exits
	d.audit.Wait()

	return err
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	seed(cfg, db)

	if cfg.Auth.LDAP.Enabled {
		checkDirectory(cfg, db)
	}

	sessionStorage, err := openSessionStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	dispatcher := audit.NewDispatcher(
		audit.LogRecorder{},
		audit.NewMetricsRecorder(),
		audit.NewDBRecorder(db),
	)

	deps := &handler.Deps{
		Cfg:        cfg,
		DB:         db,
		Identity:   websess.NewIdentityStore(sessionStorage, cfg),
		Forms:      websess.NewFormStore(sessionStorage),
		Audit:      dispatcher,
		Translator: i18n.New(),
	}

	webService, err := web.New(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build web service: %w", err)
	}

	return &Daemon{
		webService: webService,
		audit:      dispatcher,
		addr:       fmt.Sprintf(":%d", cfg.Webserver.Port),
	}, nil
}

// OpenDatabase connects gorm to the configured backend, routing its log
// output through the application logger. The member management commands
// share it with the daemon.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	source, err := dsn.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build dsn: %w", err)
	}

	var dialector gorm.Dialector

	switch cfg.DB.Driver {
	case config.DriverMySQL:
		dialector = gormmysql.Open(source)
	case config.DriverPostgres:
		dialector = gormpostgres.Open(source)
	default:
		dialector = sqlite.Open(source)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.New()})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return db, nil
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Setting{},
		&models.LoginAttempt{},
	)
}

// openSessionStorage picks the session backend matching the database
// driver, so sessions survive restarts wherever the accounts do. The
// sqlite deployments are single node, their sessions live in memory.
func openSessionStorage(cfg *config.Config) (storage.Storage, error) {
	source, err := dsn.Create(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.DB.Driver {
	case config.DriverMySQL:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: source,
			Table:         "sessions",
		}), nil
	case config.DriverPostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: source,
			Table:         "sessions",
		}), nil
	}

	return memory.New(memory.Config{GCInterval: sessionGCInterval}), nil
}

// checkDirectory probes the LDAP directory once at startup. A failure
// only warns, the directory may come up later and local accounts still
// work without it.
func checkDirectory(cfg *config.Config, db *gorm.DB) {
	provider, err := auth.NewLDAPProvider(cfg.Auth.LDAP, db)
	if err != nil {
		log.Warn().Err(err).Msg("ldap configuration is invalid, directory sign in is unavailable")

		return
	}

	if err := provider.TestConnection(); err != nil {
		log.Warn().Err(err).Msg("ldap directory is unreachable, directory sign in will fail until it recovers")

		return
	}

	log.Info().Str("url", cfg.Auth.LDAP.URL).Msg("ldap directory is reachable")
}
