package config

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/CreativeUnicorns/localeprefs"
	"github.com/CreativeUnicorns/localeprefs/cookie"
	"github.com/CreativeUnicorns/localeprefs/locale"
	"github.com/CreativeUnicorns/localeprefs/storage"
)

type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// StorageDriver selects the persistent backend: memory, sqlite, postgres or redis.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"localeprefs.db"`
	// DatabaseURL is the PostgreSQL connection string used by the postgres driver.
	DatabaseURL string `env:"DATABASE_URL"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	// RedisPassword is sensitive and never logged.
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	// Locales is the comma-separated set of supported locale codes.
	Locales []string `env:"LOCALES" envSeparator:"," envDefault:"en,zh"`
	// DefaultLocale is served when nothing usable is stored or negotiated.
	// It must be one of Locales.
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`
	// CacheTTL is how long a client's cached record is served.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	// SessionIdleTTL is how long an idle client's cache is kept in memory.
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	// PersistentBudget is the per-client byte budget of the persistent store.
	PersistentBudget int64 `env:"PERSISTENT_BUDGET" envDefault:"5242880"`
	// HeaderBudget is the byte budget of the cookie string.
	HeaderBudget int64  `env:"HEADER_BUDGET" envDefault:"4096"`
	LocaleCookie string `env:"LOCALE_COOKIE" envDefault:"NEXT_LOCALE"`
	// ClientCookie carries the client ID issued on first contact.
	ClientCookie string        `env:"CLIENT_COOKIE" envDefault:"localeprefs_client"`
	CookieMaxAge time.Duration `env:"COOKIE_MAX_AGE" envDefault:"8760h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	// EncryptAtRest seals persisted records with the key in
	// LOCALEPREFS_ENCRYPTION_KEY.
	EncryptAtRest bool `env:"ENCRYPT_AT_REST" envDefault:"false"`
	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// to complete during graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load parses configuration from environment variables and validates it.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that parse but cannot work together.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case storage.DriverMemory, storage.DriverSQLite, storage.DriverPostgres, storage.DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of memory, sqlite, postgres, redis", c.StorageDriver))
	}
	if c.StorageDriver == storage.DriverPostgres && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
	}
	if c.StorageDriver == storage.DriverSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
	}

	if _, err := c.LocaleSet(); err != nil {
		errs = append(errs, err)
	}
	if _, err := localeprefs.ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if c.SessionIdleTTL < c.CacheTTL {
		errs = append(errs, errors.New("SESSION_IDLE_TTL must not be shorter than CACHE_TTL"))
	}
	if c.PersistentBudget <= 0 || c.HeaderBudget <= 0 {
		errs = append(errs, errors.New("storage budgets must be positive"))
	}
	if c.LocaleCookie == "" || c.ClientCookie == "" {
		errs = append(errs, errors.New("cookie names must not be empty"))
	}
	if c.LocaleCookie == c.ClientCookie {
		errs = append(errs, errors.New("LOCALE_COOKIE and CLIENT_COOKIE must differ"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// LocaleSet builds the supported locale set. DefaultLocale must be listed
// in Locales.
func (c Config) LocaleSet() (*locale.Set, error) {
	listed, err := locale.NewSet("", c.Locales...)
	if err != nil {
		return nil, fmt.Errorf("LOCALES: %w", err)
	}
	if c.DefaultLocale == "" {
		return listed, nil
	}
	if !listed.Supported(c.DefaultLocale) {
		return nil, fmt.Errorf("%w: DEFAULT_LOCALE %q is not in LOCALES", localeprefs.ErrInvalidLocale, c.DefaultLocale)
	}
	return locale.NewSet(c.DefaultLocale, c.Locales...)
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() localeprefs.LogLevel {
	level, _ := localeprefs.ParseLogLevel(c.LogLevel)
	return level
}

// StorageOptions returns the backend selection for storage.Open.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:        c.StorageDriver,
		SQLitePath:    c.SQLitePath,
		DatabaseURL:   c.DatabaseURL,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
	}
}

// CookieOptions returns the attributes for cookies written by the service.
func (c Config) CookieOptions() cookie.Options {
	return cookie.Options{
		Path:     "/",
		MaxAge:   c.CookieMaxAge,
		Secure:   c.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Budget:   c.HeaderBudget,
	}
}
