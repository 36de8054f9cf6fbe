package config

// Database drivers accepted in the db.driver setting.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB holds the database configuration settings.
type DB struct {
	Driver   string `validate:"oneof=mysql postgres sqlite"`
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Path     string // database file location, sqlite only
}
