package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/CreativeUnicorns/localeprefs"
	"github.com/CreativeUnicorns/localeprefs/config"
	"github.com/CreativeUnicorns/localeprefs/cookie"
	"github.com/CreativeUnicorns/localeprefs/storage"
)

// clientReport is what the client commands print.
type clientReport struct {
	Client string `json:"client"`
	Result any    `json:"result"`
	// Cookies is the locale cookie state after the command, to be sent
	// back to the client.
	Cookies map[string]string `json:"cookies"`
}

// clientOp runs one Manager operation and returns what to print.
type clientOp func(ctx context.Context, m *localeprefs.Manager) any

func newClientCommands() []*cobra.Command {
	return []*cobra.Command{
		newClientCmd("check", "Report inconsistencies in a client's preference data",
			func(ctx context.Context, m *localeprefs.Manager) any {
				return m.CheckDataConsistency(ctx)
			}),
		newClientCmd("repair", "Fix inconsistencies in a client's preference data",
			func(ctx context.Context, m *localeprefs.Manager) any {
				return m.FixDataInconsistency(ctx)
			}),
		newClientCmd("sync", "Converge a client's persisted record and locale cookie",
			func(ctx context.Context, m *localeprefs.Manager) any {
				return m.SyncPreferenceData(ctx)
			}),
		newClientCmd("usage", "Report a client's storage usage",
			func(ctx context.Context, m *localeprefs.Manager) any {
				return m.GetStorageUsage(ctx)
			}),
	}
}

func newClientCmd(use, short string, op clientOp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, _ := cmd.Flags().GetString("client")
			localeCookie, _ := cmd.Flags().GetString("cookie")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := localeprefs.NewLogger(cmd.ErrOrStderr(), cfg.Level())

			report, err := runClientOp(cmd.Context(), cfg, logger, clientID, localeCookie, op)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().String("client", "", "client ID whose data to act on")
	cmd.Flags().String("cookie", "", "value of the client's locale cookie, if any")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

func runClientOp(ctx context.Context, cfg config.Config, logger localeprefs.Logger, clientID, localeCookie string, op clientOp) (clientReport, error) {
	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return clientReport{}, fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	locales, err := cfg.LocaleSet()
	if err != nil {
		return clientReport{}, err
	}

	seed := map[string]string{}
	if localeCookie != "" {
		seed[cfg.LocaleCookie] = localeCookie
	}
	jar := cookie.NewMemoryJar(cfg.HeaderBudget, seed)

	opts := []localeprefs.Option{
		localeprefs.WithPersistentStore(localeprefs.NewScopedStore(store, clientID, cfg.PersistentBudget)),
		localeprefs.WithHeaderStore(jar),
		localeprefs.WithCache(localeprefs.NewCacheManager(localeprefs.WithTTL(cfg.CacheTTL))),
		localeprefs.WithLocales(locales),
		localeprefs.WithLogger(logger),
		localeprefs.WithClientID(clientID),
		localeprefs.WithLocaleCookie(cfg.LocaleCookie),
	}
	encryptor, err := encryptorFor(cfg)
	if err != nil {
		return clientReport{}, err
	}
	if encryptor != nil {
		opts = append(opts, localeprefs.WithEncryption(encryptor))
	}

	result := op(ctx, localeprefs.New(opts...))
	return clientReport{Client: clientID, Result: result, Cookies: jar.Values()}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
