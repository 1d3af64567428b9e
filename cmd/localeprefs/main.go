// Command localeprefs serves and maintains per-client locale preferences.
//
// "serve" runs the HTTP service. "check", "repair", "sync" and "usage" act
// on one client's persisted data directly, with the client's locale cookie
// passed on the command line, and print JSON.
//
// All settings come from the environment; see package config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/CreativeUnicorns/localeprefs"
	"github.com/CreativeUnicorns/localeprefs/api"
	"github.com/CreativeUnicorns/localeprefs/cache"
	"github.com/CreativeUnicorns/localeprefs/config"
	"github.com/CreativeUnicorns/localeprefs/storage"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "localeprefs",
		Short:        "Per-client locale preference service",
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := localeprefs.NewLogger(cmd.ErrOrStderr(), cfg.Level())

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return serve(ctx, cfg, logger)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)
	rootCmd.AddCommand(newClientCommands()...)
	return rootCmd
}

func serve(ctx context.Context, cfg config.Config, logger localeprefs.Logger) error {
	logger.Info("localeprefs starting", "version", version, "storage", cfg.StorageDriver)

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	locales, err := cfg.LocaleSet()
	if err != nil {
		return err
	}
	encryptor, err := encryptorFor(cfg)
	if err != nil {
		return err
	}

	registry := cache.NewRegistry(cfg.SessionIdleTTL, localeprefs.WithTTL(cfg.CacheTTL))
	registry.OnEvict(func(clientID string) {
		logger.Debug("Dropped idle client cache", "client_id", clientID)
	})

	srv, err := api.NewServer(api.Config{
		ListenAddress:    cfg.ListenAddr,
		Storage:          store,
		Registry:         registry,
		Locales:          locales,
		Logger:           logger,
		Encryptor:        encryptor,
		PersistentBudget: cfg.PersistentBudget,
		Cookies:          cfg.CookieOptions(),
		LocaleCookie:     cfg.LocaleCookie,
		ClientCookie:     cfg.ClientCookie,
	})
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server exited gracefully")
	return nil
}

// encryptorFor returns nil unless records are encrypted at rest.
func encryptorFor(cfg config.Config) (localeprefs.Encryptor, error) {
	if !cfg.EncryptAtRest {
		return nil, nil
	}
	adapter, err := localeprefs.NewEncryptionAdapter()
	if err != nil {
		return nil, fmt.Errorf("ENCRYPT_AT_REST: %w", err)
	}
	return adapter, nil
}
