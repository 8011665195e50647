package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is wrapped by every error returned from Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		Env                      string
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Driver      Driver
		Path        string // sqlite file
		DSN         string // postgres connection string
		User        string
		Password    string
		PoolMin     int
		PoolMax     int
		BusyTimeout time.Duration
	}

	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS
		CSRFEnabled     bool
		BcryptCost      int

		MaxLoginAttempts int           // Max failed attempts before lockout
		RateLimitWindow  time.Duration // Time window for counting attempts
		LockoutDuration  time.Duration
	}

	Log struct {
		Level  string
		Format string // "console" or "json"
	}
)

// NewConfig loads configuration from the environment. A .env file in the
// working directory is read first when present; real environment variables win.
func NewConfig() *Config {
	_ = godotenv.Load()
	return newConfigFromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("app_env", "development")

	v.SetDefault("database_driver", string(DriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_pool_min", 1)
	v.SetDefault("database_pool_max", 5)
	v.SetDefault("database_busy_timeout", "5s")

	v.SetDefault("secret_key", "") // generated at start if empty
	v.SetDefault("auth_session_lifetime", "12h")
	v.SetDefault("auth_secure_cookies", false)
	v.SetDefault("auth_csrf_enabled", true)
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	return v
}

func newConfigFromViper(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			Env:                      v.GetString("APP_ENV"),
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver:      Driver(v.GetString("DATABASE_DRIVER")),
			Path:        v.GetString("DATABASE_PATH"),
			DSN:         v.GetString("DATABASE_DSN"),
			User:        v.GetString("DATABASE_USER"),
			Password:    v.GetString("DATABASE_PASSWORD"),
			PoolMin:     v.GetInt("DATABASE_POOL_MIN"),
			PoolMax:     v.GetInt("DATABASE_POOL_MAX"),
			BusyTimeout: v.GetDuration("DATABASE_BUSY_TIMEOUT"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("SECRET_KEY"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFEnabled:      v.GetBool("AUTH_CSRF_ENABLED"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

// Validate reports missing or contradictory settings. Startup aborts on error.
func (c *Config) Validate() error {
	return c.Database.Validate()
}

func (d Database) Validate() error {
	switch d.Driver {
	case DriverSQLite:
		if d.Path == "" {
			return fmt.Errorf("%w: DATABASE_PATH is required for sqlite", ErrInvalidConfig)
		}
	case DriverPostgres:
		if d.DSN == "" {
			return fmt.Errorf("%w: DATABASE_DSN is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown DATABASE_DRIVER %q", ErrInvalidConfig, d.Driver)
	}
	if d.PoolMax < 1 {
		return fmt.Errorf("%w: DATABASE_POOL_MAX must be at least 1", ErrInvalidConfig)
	}
	if d.PoolMin < 0 || d.PoolMin > d.PoolMax {
		return fmt.Errorf("%w: DATABASE_POOL_MIN must be between 0 and DATABASE_POOL_MAX", ErrInvalidConfig)
	}
	return nil
}

// ConnectionString returns the driver-specific DSN. For sqlite the pragmas
// needed for concurrent request handling are appended to the file path; for
// postgres DATABASE_USER and DATABASE_PASSWORD override the DSN credentials.
func (d Database) ConnectionString() string {
	switch d.Driver {
	case DriverPostgres:
		return d.postgresDSN()
	default:
		busy := d.BusyTimeout
		if busy <= 0 {
			busy = 5 * time.Second
		}
		q := url.Values{}
		q.Set("_busy_timeout", fmt.Sprint(busy.Milliseconds()))
		q.Set("_foreign_keys", "1")
		q.Set("_journal_mode", "WAL")
		q.Set("_txlock", "immediate")
		return d.Path + "?" + q.Encode()
	}
}

func (d Database) postgresDSN() string {
	if d.User == "" {
		return d.DSN
	}
	u, err := url.Parse(d.DSN)
	if err != nil || u.Scheme == "" {
		// key=value form
		dsn := d.DSN + " user=" + d.User
		if d.Password != "" {
			dsn += " password=" + d.Password
		}
		return dsn
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	return u.String()
}
