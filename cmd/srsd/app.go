package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-srs/internal/config"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/domain/srs"
	"github.com/phrazzld/scry-srs/internal/platform/memory"
	"github.com/phrazzld/scry-srs/internal/platform/metrics"
	"github.com/phrazzld/scry-srs/internal/platform/postgres"
	"github.com/phrazzld/scry-srs/internal/platform/sqlite"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
	"github.com/phrazzld/scry-srs/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
	driverMemory   = "memory"
)

// seeder creates decks and cards. Every store adapter provides it.
type seeder interface {
	CreateDeck(ctx context.Context, deck *domain.Deck) error
	CreateCard(ctx context.Context, card *domain.Card) error
}

type stores struct {
	cards  store.CardStore
	decks  store.DeckStore
	logs   store.ReviewLogStore
	seeder seeder
}

// postgresSeeder joins the separate PostgreSQL deck and card stores.
type postgresSeeder struct {
	*postgres.PostgresDeckStore
	*postgres.PostgresCardStore
}

// application holds the dependencies shared by every command.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	db       *sql.DB
	registry *prometheus.Registry
	stores   stores
	reviews  card_review.Service
}

// newApplication opens the configured store and wires the review service.
// db stays nil for the memory driver.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	registry *prometheus.Registry,
) (*application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &application{
		config:   cfg,
		logger:   logger,
		registry: registry,
	}

	var err error
	app.db, app.stores, err = openStores(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	srsService, err := srs.NewDefaultService()
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize SRS service: %w", err)
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	app.reviews = card_review.NewService(
		app.stores.cards,
		app.stores.decks,
		app.stores.logs,
		srsService,
		logger,
		card_review.WithMaxAttempts(cfg.Review.MaxAttempts),
		card_review.WithMetrics(recorder),
	)

	logger.Info("application initialized",
		slog.String("driver", cfg.Database.Driver),
		slog.Int("max_attempts", cfg.Review.MaxAttempts))
	return app, nil
}

func openStores(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, stores, error) {
	switch cfg.Driver {
	case driverPostgres:
		db, err := postgres.Open(ctx, cfg, logger)
		if err != nil {
			return nil, stores{}, err
		}
		cards := postgres.NewPostgresCardStore(db, logger)
		decks := postgres.NewPostgresDeckStore(db, logger)
		return db, stores{
			cards:  cards,
			decks:  decks,
			logs:   postgres.NewPostgresReviewLogStore(db, logger),
			seeder: postgresSeeder{PostgresDeckStore: decks, PostgresCardStore: cards},
		}, nil

	case driverSQLite:
		db, err := sqlite.Open(ctx, cfg.URL, logger)
		if err != nil {
			return nil, stores{}, err
		}
		s := sqlite.New(db, logger)
		return db, stores{cards: s, decks: s, logs: s, seeder: s}, nil

	case driverMemory:
		logger.Warn("using the in-memory store, data is lost on exit")
		s := memory.New(logger)
		return nil, stores{cards: s, decks: s, logs: s, seeder: s}, nil

	default:
		return nil, stores{}, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// migrate runs a goose command against the configured database.
func (app *application) migrate(ctx context.Context, command string) error {
	switch app.config.Database.Driver {
	case driverPostgres:
		return postgres.Migrate(ctx, app.db, command, app.logger)
	case driverSQLite:
		return sqlite.Migrate(ctx, app.db, command, app.logger)
	default:
		return errors.New("migrations require the postgres or sqlite driver")
	}
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", "error", err)
	}
}
