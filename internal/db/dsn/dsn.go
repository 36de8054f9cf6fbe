// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"errors"
	"fmt"

	"github.com/go-membergate/membergate/internal/config"
)

// ErrUnknownDriver is returned for a db.driver outside mysql, postgres and sqlite.
var ErrUnknownDriver = errors.New("unknown database driver")

// defaultSQLitePath is used when db.path is not configured.
const defaultSQLitePath = "./membergate.db"

// Create builds the Data Source Name from the configuration.
func Create(cfg *config.Config) (string, error) {
	switch cfg.DB.Driver {
	case config.DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Name,
			cfg.DB.Extras,
		), nil
	case config.DriverPostgres:
		out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Name,
		)

		if cfg.DB.Extras != "" {
			out += " " + cfg.DB.Extras
		}

		return out, nil
	case config.DriverSQLite:
		if cfg.DB.Path == "" {
			return defaultSQLitePath, nil
		}

		return cfg.DB.Path, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.DB.Driver)
}
