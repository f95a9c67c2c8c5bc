package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/store"
)

// PostgresDeckStore implements store.DeckStore.
type PostgresDeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.DeckStore = (*PostgresDeckStore)(nil)

// NewPostgresDeckStore creates a deck store on db. If logger is nil, a
// default logger will be used.
func NewPostgresDeckStore(db store.DBTX, logger *slog.Logger) *PostgresDeckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDeckStore{
		db:     db,
		logger: logger.With(slog.String("component", "deck_store")),
	}
}

// CreateDeck inserts a new deck.
func (s *PostgresDeckStore) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := deck.Validate(); err != nil {
		return store.NewStoreError("deck", "create", "validation failed",
			errors.Join(store.ErrInvalidEntity, err))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decks (id, owner_id, title, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		deck.ID, deck.OwnerID, deck.Title, deck.Description,
		deck.CreatedAt.UTC(), deck.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to insert deck",
			slog.String("deck_id", deck.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("deck", "create", "insert failed", MapError(err))
	}
	return nil
}

// GetDeck implements store.DeckStore.
func (s *PostgresDeckStore) GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	var deck domain.Deck
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, created_at, updated_at
		FROM decks
		WHERE id = $1`, id,
	).Scan(&deck.ID, &deck.OwnerID, &deck.Title, &deck.Description, &deck.CreatedAt, &deck.UpdatedAt)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			return nil, store.ErrDeckNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get deck",
			slog.String("deck_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("deck", "get", "query failed", mapped)
	}
	return &deck, nil
}
