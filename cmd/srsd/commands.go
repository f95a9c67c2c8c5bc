package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/config"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/platform/migrate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// loadConfig loads configuration from path (or ./config.yaml when empty) and
// installs the configured logger as the default.
func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log, nil
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "srsd",
		Short:        "Spaced-repetition review service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "",
		"path to a config file (defaults to ./config.yaml if present)")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newSeedCmd(&configPath),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			registry := prometheus.NewRegistry()
			app, err := newApplication(ctx, cfg, log, registry)
			if err != nil {
				return err
			}
			defer app.cleanup()

			if migrateFirst {
				if err := app.migrate(ctx, migrate.CommandUp); err != nil {
					return err
				}
			}

			ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
			if err != nil {
				return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
			}
			return app.serve(ctx, ln, app.setupRouter())
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate {up|down|status|version}",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{migrate.CommandUp, migrate.CommandDown, migrate.CommandStatus, migrate.CommandVersion},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			app, err := newApplication(cmd.Context(), cfg, log, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer app.cleanup()
			return app.migrate(cmd.Context(), args[0])
		},
	}
}

func newSeedCmd(configPath *string) *cobra.Command {
	var (
		owner string
		title string
		file  string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a deck and its cards from a JSON file",
		Long: `Create a deck owned by --owner and load cards from --file, a JSON array of
{"term": "...", "definition": "..."} objects. New cards are due immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, err := uuid.Parse(owner)
			if err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver == driverMemory {
				return errors.New("seeding the memory driver has no lasting effect")
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open card file: %w", err)
			}
			defer func() { _ = f.Close() }()

			ctx := cmd.Context()
			app, err := newApplication(ctx, cfg, log, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer app.cleanup()

			deck, n, err := seedDeck(ctx, app.stores.seeder, ownerID, title, f, time.Now().UTC())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created deck %s with %d cards\n", deck.ID, n)
			return err
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner UUID of the new deck")
	cmd.Flags().StringVar(&title, "title", "", "deck title")
	cmd.Flags().StringVar(&file, "file", "", "path to the JSON card file")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
