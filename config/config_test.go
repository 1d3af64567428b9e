package config_test

import (
	"errors"
	"net/http"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/CreativeUnicorns/localeprefs"
	"github.com/CreativeUnicorns/localeprefs/config"
	"github.com/CreativeUnicorns/localeprefs/storage"
)

var _ = Describe("Load", func() {
	// Saved and restored around each test.
	var envKeys = []string{
		"LISTEN_ADDR", "STORAGE_DRIVER", "SQLITE_PATH", "DATABASE_URL",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LOCALES", "DEFAULT_LOCALE",
		"CACHE_TTL", "SESSION_IDLE_TTL", "PERSISTENT_BUDGET", "HEADER_BUDGET",
		"LOCALE_COOKIE", "CLIENT_COOKIE", "COOKIE_MAX_AGE", "COOKIE_SECURE",
		"LOG_LEVEL", "ENCRYPT_AT_REST", "SHUTDOWN_TIMEOUT",
	}

	var saved map[string]string

	BeforeEach(func() {
		saved = make(map[string]string, len(envKeys))
		for _, k := range envKeys {
			saved[k] = os.Getenv(k)
			Expect(os.Unsetenv(k)).To(Succeed())
		}
	})

	AfterEach(func() {
		for k, v := range saved {
			if v == "" {
				Expect(os.Unsetenv(k)).To(Succeed())
			} else {
				Expect(os.Setenv(k, v)).To(Succeed())
			}
		}
	})

	It("returns defaults when no env vars are set", func() {
		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.ListenAddr).To(Equal(":8080"))
		Expect(cfg.StorageDriver).To(Equal("memory"))
		Expect(cfg.SQLitePath).To(Equal("localeprefs.db"))
		Expect(cfg.DatabaseURL).To(BeEmpty())
		Expect(cfg.RedisAddr).To(Equal("localhost:6379"))
		Expect(cfg.RedisDB).To(Equal(0))
		Expect(cfg.Locales).To(Equal([]string{"en", "zh"}))
		Expect(cfg.DefaultLocale).To(Equal("en"))
		Expect(cfg.CacheTTL).To(Equal(5 * time.Minute))
		Expect(cfg.SessionIdleTTL).To(Equal(30 * time.Minute))
		Expect(cfg.PersistentBudget).To(Equal(localeprefs.DefaultPersistentBudget))
		Expect(cfg.HeaderBudget).To(Equal(localeprefs.DefaultHeaderBudget))
		Expect(cfg.LocaleCookie).To(Equal(localeprefs.DefaultLocaleCookie))
		Expect(cfg.ClientCookie).To(Equal("localeprefs_client"))
		Expect(cfg.CookieMaxAge).To(Equal(365 * 24 * time.Hour))
		Expect(cfg.CookieSecure).To(BeFalse())
		Expect(cfg.LogLevel).To(Equal("info"))
		Expect(cfg.EncryptAtRest).To(BeFalse())
		Expect(cfg.ShutdownTimeout).To(Equal(15 * time.Second))
	})

	It("reads values from env vars", func() {
		Expect(os.Setenv("LISTEN_ADDR", ":9090")).To(Succeed())
		Expect(os.Setenv("STORAGE_DRIVER", "postgres")).To(Succeed())
		Expect(os.Setenv("DATABASE_URL", "postgres://u:p@db:5432/prefs?sslmode=disable")).To(Succeed())
		Expect(os.Setenv("LOCALES", "en,zh,de")).To(Succeed())
		Expect(os.Setenv("DEFAULT_LOCALE", "de")).To(Succeed())
		Expect(os.Setenv("CACHE_TTL", "1m")).To(Succeed())
		Expect(os.Setenv("COOKIE_SECURE", "true")).To(Succeed())
		Expect(os.Setenv("LOG_LEVEL", "debug")).To(Succeed())

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.ListenAddr).To(Equal(":9090"))
		Expect(cfg.StorageDriver).To(Equal("postgres"))
		Expect(cfg.DatabaseURL).To(Equal("postgres://u:p@db:5432/prefs?sslmode=disable"))
		Expect(cfg.Locales).To(Equal([]string{"en", "zh", "de"}))
		Expect(cfg.CacheTTL).To(Equal(time.Minute))
		Expect(cfg.CookieSecure).To(BeTrue())
		Expect(cfg.Level()).To(Equal(localeprefs.LogLevelDebug))

		set, err := cfg.LocaleSet()
		Expect(err).NotTo(HaveOccurred())
		Expect(set.Default()).To(Equal("de"))
		Expect(set.Codes()).To(Equal([]string{"de", "en", "zh"}))
	})

	It("returns an error for an unparsable duration", func() {
		Expect(os.Setenv("CACHE_TTL", "soon")).To(Succeed())

		_, err := config.Load()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(HavePrefix("config:"))
	})

	It("returns an error for an unparsable integer", func() {
		Expect(os.Setenv("REDIS_DB", "zero")).To(Succeed())

		_, err := config.Load()
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("rejects inconsistent settings",
		func(key, value, message string) {
			Expect(os.Setenv(key, value)).To(Succeed())

			_, err := config.Load()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(message))
		},
		Entry("unknown driver", "STORAGE_DRIVER", "etcd", `STORAGE_DRIVER "etcd"`),
		Entry("postgres without url", "STORAGE_DRIVER", "postgres", "DATABASE_URL is required"),
		Entry("default outside locales", "DEFAULT_LOCALE", "fr", `DEFAULT_LOCALE "fr" is not in LOCALES`),
		Entry("unknown log level", "LOG_LEVEL", "chatty", "unknown log level"),
		Entry("idle shorter than cache", "SESSION_IDLE_TTL", "1m", "SESSION_IDLE_TTL"),
		Entry("same cookie names", "CLIENT_COOKIE", "NEXT_LOCALE", "must differ"),
		Entry("non-positive budget", "HEADER_BUDGET", "0", "budgets must be positive"),
	)

	It("wraps the invalid locale sentinel", func() {
		Expect(os.Setenv("DEFAULT_LOCALE", "fr")).To(Succeed())

		_, err := config.Load()
		Expect(errors.Is(err, localeprefs.ErrInvalidLocale)).To(BeTrue())
	})
})

var _ = Describe("Config", func() {
	var cfg config.Config

	BeforeEach(func() {
		cfg = config.Config{
			StorageDriver: storage.DriverRedis,
			RedisAddr:     "redis:6379",
			RedisPassword: "secret",
			RedisDB:       2,
			HeaderBudget:  2048,
			CookieMaxAge:  time.Hour,
			CookieSecure:  true,
		}
	})

	It("maps storage settings", func() {
		opts := cfg.StorageOptions()
		Expect(opts.Driver).To(Equal(storage.DriverRedis))
		Expect(opts.RedisAddr).To(Equal("redis:6379"))
		Expect(opts.RedisPassword).To(Equal("secret"))
		Expect(opts.RedisDB).To(Equal(2))
	})

	It("maps cookie settings", func() {
		opts := cfg.CookieOptions()
		Expect(opts.Path).To(Equal("/"))
		Expect(opts.MaxAge).To(Equal(time.Hour))
		Expect(opts.Secure).To(BeTrue())
		Expect(opts.SameSite).To(Equal(http.SameSiteLaxMode))
		Expect(opts.Budget).To(Equal(int64(2048)))
	})

	It("defaults the log level to info", func() {
		Expect(cfg.Level()).To(Equal(localeprefs.LogLevelInfo))
	})
})
