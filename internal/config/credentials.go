package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/model"
	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
)

// Credentials holds the database connection settings read from the .env file.
type Credentials struct {
	Driver   string
	Server   string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Table is the member table, optionally schema-qualified.
	Table string

	// AutoMigrate creates or alters the member table on connect.
	AutoMigrate bool

	ConnectTimeout  time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// LoadCredentials reads database credentials from envFile. Variables already
// present in the process environment take precedence over the file.
//
// RETURNS:
//   - The credentials.
//   - An error wrapping apperror.ErrConfiguration when the file is missing
//     or a required value is absent.
func LoadCredentials(envFile string) (*Credentials, error) {
	values, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("credentials file %s not found: %w", envFile, apperror.ErrConfiguration)
		}
		return nil, fmt.Errorf("failed to load credentials file %s: %w: %w", envFile, apperror.ErrConfiguration, err)
	}

	absPath, _ := filepath.Abs(envFile)
	slog.Debug("credentials file loaded", "file", absPath)

	env := envSource(values)
	creds := &Credentials{
		Driver:          strings.ToLower(env.get("SQL_DRIVER", DriverSQLServer)),
		Server:          env.get("SQL_SERVER", ""),
		Database:        env.get("SQL_DATABASE", ""),
		User:            env.get("SQL_USER", ""),
		Password:        env.get("SQL_PASSWORD", ""),
		SSLMode:         env.get("SQL_SSLMODE", "disable"),
		Table:           env.get("SQL_TABLE", model.DefaultTable),
		AutoMigrate:     env.getBool("SQL_AUTO_MIGRATE", false),
		ConnectTimeout:  env.getDuration("SQL_CONNECT_TIMEOUT", "10s"),
		MaxOpenConns:    env.getInt("SQL_MAX_OPEN_CONNS", 4),
		ConnMaxLifetime: env.getDuration("SQL_CONN_MAX_LIFETIME", "30m"),
	}
	creds.Port = env.getInt("SQL_PORT", defaultPort(creds.Driver))

	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return creds, nil
}

// Validate checks that every value the selected driver needs is present.
func (c *Credentials) Validate() error {
	var problems []string

	switch c.Driver {
	case DriverSQLite:
		if c.Database == "" {
			problems = append(problems, "SQL_DATABASE (sqlite file path) is required")
		}
	case DriverSQLServer, DriverPostgres:
		if c.Server == "" {
			problems = append(problems, "SQL_SERVER is required")
		}
		if c.Database == "" {
			problems = append(problems, "SQL_DATABASE is required")
		}
		if c.User == "" {
			problems = append(problems, "SQL_USER is required")
		}
		if c.Password == "" {
			problems = append(problems, "SQL_PASSWORD is required")
		}
		if c.Port < 1 || c.Port > 65535 {
			problems = append(problems, "SQL_PORT is not a valid port")
		}
	default:
		problems = append(problems, fmt.Sprintf("SQL_DRIVER %q is not sqlserver, postgres or sqlite", c.Driver))
	}

	if !tableNamePattern.MatchString(c.Table) {
		problems = append(problems, fmt.Sprintf("SQL_TABLE %q is not a valid table name", c.Table))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperror.ErrConfiguration, strings.Join(problems, ", "))
	}
	return nil
}

// DSN builds the connection string for the configured driver.
func (c *Credentials) DSN() string {
	switch c.Driver {
	case DriverSQLite:
		return c.Database
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Server, c.Port, c.User, c.Password, c.Database, c.SSLMode)
	default:
		query := url.Values{}
		query.Set("database", c.Database)
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.User, c.Password),
			Host:     fmt.Sprintf("%s:%d", c.Server, c.Port),
			RawQuery: query.Encode(),
		}
		return u.String()
	}
}

// Redacted describes the connection target without secrets, for logs.
func (c *Credentials) Redacted() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("sqlite:%s", c.Database)
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", c.Driver, c.User, c.Server, c.Port, c.Database)
}

func defaultPort(driver string) int {
	switch driver {
	case DriverPostgres:
		return 5432
	case DriverSQLServer:
		return 1433
	default:
		return 0
	}
}

// =============================================================================
// ENVIRONMENT HELPERS
// =============================================================================

// envSource resolves a key from the process environment first, then from the
// parsed .env file.
type envSource map[string]string

func (e envSource) get(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if value, exists := e[key]; exists {
		return value
	}
	return defaultValue
}

func (e envSource) getInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(e.get(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func (e envSource) getBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(e.get(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func (e envSource) getDuration(key string, defaultValue string) time.Duration {
	if duration, err := time.ParseDuration(e.get(key, defaultValue)); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return 0
}
