package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CreativeUnicorns/localeprefs"
	"github.com/CreativeUnicorns/localeprefs/cache"
	"github.com/CreativeUnicorns/localeprefs/cookie"
	"github.com/CreativeUnicorns/localeprefs/locale"
)

// DefaultClientCookie names the cookie carrying the client ID.
const DefaultClientCookie = "localeprefs_client"

// Server holds the dependencies for the HTTP server.
type Server struct {
	storage    localeprefs.Storage
	registry   *cache.Registry
	locales    *locale.Set
	logger     localeprefs.Logger
	encryptor  localeprefs.Encryptor
	budget     int64
	cookies    cookie.Options
	localeName string
	clientName string
	router     *chi.Mux
	httpServer *http.Server
}

// Config holds configuration for the API server.
type Config struct {
	ListenAddress string
	// Storage is shared by all clients; each request sees its own scope.
	Storage  localeprefs.Storage
	Registry *cache.Registry
	Locales  *locale.Set
	Logger   localeprefs.Logger
	// Encryptor, when set, seals records before they reach Storage.
	Encryptor        localeprefs.Encryptor
	PersistentBudget int64
	Cookies          cookie.Options
	LocaleCookie     string
	ClientCookie     string
}

// NewServer creates and configures a new API server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("%w: storage is required", localeprefs.ErrInvalidInput)
	}
	if cfg.Logger == nil {
		cfg.Logger = localeprefs.NewDefaultLogger()
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.Registry == nil {
		cfg.Registry = cache.NewRegistry(cache.DefaultIdleTTL)
	}
	if cfg.Locales == nil {
		cfg.Locales = locale.DefaultSet()
	}
	if cfg.PersistentBudget <= 0 {
		cfg.PersistentBudget = localeprefs.DefaultPersistentBudget
	}
	if cfg.LocaleCookie == "" {
		cfg.LocaleCookie = localeprefs.DefaultLocaleCookie
	}
	if cfg.ClientCookie == "" {
		cfg.ClientCookie = DefaultClientCookie
	}
	if cfg.LocaleCookie == cfg.ClientCookie {
		return nil, fmt.Errorf("%w: locale and client cookies must differ", localeprefs.ErrInvalidInput)
	}

	s := &Server{
		storage:    cfg.Storage,
		registry:   cfg.Registry,
		locales:    cfg.Locales,
		logger:     cfg.Logger,
		encryptor:  cfg.Encryptor,
		budget:     cfg.PersistentBudget,
		cookies:    cfg.Cookies,
		localeName: cfg.LocaleCookie,
		clientName: cfg.ClientCookie,
		router:     chi.NewRouter(),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and the cache registry's eviction loop. It
// blocks until the server is shut down and returns nil after a graceful
// shutdown.
func (s *Server) Start() error {
	go s.registry.Start()
	s.logger.Info("API server starting", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server and the eviction loop.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("API server stopping")
	defer s.registry.Stop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("API server stopped gracefully")
	return nil
}

// managerFor builds the Manager serving one request. The persistent store
// is the client's slice of the shared storage, the header store is the
// request's cookies and the cache survives across the client's requests.
func (s *Server) managerFor(w http.ResponseWriter, r *http.Request) *localeprefs.Manager {
	clientID := ClientIDFromContext(r.Context())

	opts := []localeprefs.Option{
		localeprefs.WithPersistentStore(localeprefs.NewScopedStore(s.storage, clientID, s.budget)),
		localeprefs.WithHeaderStore(cookie.NewJar(w, r, s.cookies)),
		localeprefs.WithCache(s.registry.Get(clientID)),
		localeprefs.WithLocales(s.locales),
		localeprefs.WithLogger(s.logger),
		localeprefs.WithClientID(clientID),
		localeprefs.WithLocaleCookie(s.localeName),
	}
	if s.encryptor != nil {
		opts = append(opts, localeprefs.WithEncryption(s.encryptor))
	}
	return localeprefs.New(opts...)
}
