// Package memory provides an in-process implementation of the store
// interfaces. It backs the "memory" database driver for local development
// and serves as the collaborator in service tests.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/store"
)

// Store is a mutex-protected in-memory store. It implements store.CardStore,
// store.DeckStore, store.ReviewLogStore and store.ReviewCommitter.
// Values are copied on the way in and out so callers never share memory
// with the store.
type Store struct {
	mu        sync.RWMutex
	decks     map[uuid.UUID]domain.Deck
	cards     map[uuid.UUID]domain.Card
	logs      []domain.ReviewLog
	appendErr error
	logger    *slog.Logger
}

var (
	_ store.CardStore       = (*Store)(nil)
	_ store.DeckStore       = (*Store)(nil)
	_ store.ReviewLogStore  = (*Store)(nil)
	_ store.ReviewCommitter = (*Store)(nil)
)

// New creates an empty Store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		decks:  make(map[uuid.UUID]domain.Deck),
		cards:  make(map[uuid.UUID]domain.Card),
		logger: logger.With(slog.String("component", "memory_store")),
	}
}

// FailLogAppends makes every subsequent Append and CommitReview fail with err
// before anything is written. Pass nil to restore normal behaviour.
func (s *Store) FailLogAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendErr = err
}

// CreateDeck stores a new deck.
func (s *Store) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := deck.Validate(); err != nil {
		return store.NewStoreError("deck", "create", "validation failed",
			errors.Join(store.ErrInvalidEntity, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.decks[deck.ID]; exists {
		return store.ErrDuplicate
	}
	s.decks[deck.ID] = *deck
	return nil
}

// CreateCard stores a new card. The card's OwnerID is taken from its deck.
func (s *Store) CreateCard(ctx context.Context, card *domain.Card) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	deck, ok := s.decks[card.DeckID]
	if !ok {
		return store.ErrDeckNotFound
	}
	if _, exists := s.cards[card.ID]; exists {
		return store.ErrDuplicate
	}

	stored := *card
	stored.OwnerID = deck.OwnerID
	if err := stored.Validate(); err != nil {
		return store.NewStoreError("card", "create", "validation failed",
			errors.Join(store.ErrInvalidEntity, err))
	}
	s.cards[card.ID] = stored
	card.OwnerID = deck.OwnerID
	return nil
}

// GetDeck implements store.DeckStore.
func (s *Store) GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	deck, ok := s.decks[id]
	if !ok {
		return nil, store.ErrDeckNotFound
	}
	return &deck, nil
}

// Get implements store.CardStore.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return &card, nil
}

// ListByDeck implements store.CardStore.
func (s *Store) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	cards := make([]domain.Card, 0)
	for _, c := range s.cards {
		if c.DeckID == deckID {
			cards = append(cards, c)
		}
	}
	return cards, nil
}

// CompareAndSwapSRSState implements store.CardStore.
func (s *Store) CompareAndSwapSRSState(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	update store.SRSUpdate,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swapLocked(id, expectedVersion, update)
}

// Append implements store.ReviewLogStore.
func (s *Store) Append(ctx context.Context, entry *domain.ReviewLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.logs = append(s.logs, *entry)
	return nil
}

// CommitReview implements store.ReviewCommitter. The swap and the append
// happen under one lock acquisition; if the append is configured to fail,
// the card is left untouched.
func (s *Store) CommitReview(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	update store.SRSUpdate,
	entry *domain.ReviewLog,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	if err := s.swapLocked(id, expectedVersion, update); err != nil {
		return err
	}
	s.logs = append(s.logs, *entry)
	return nil
}

// ReviewLogs returns the log entries recorded for cardID in append order.
func (s *Store) ReviewLogs(cardID uuid.UUID) []domain.ReviewLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ReviewLog
	for _, l := range s.logs {
		if l.CardID == cardID {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) swapLocked(id uuid.UUID, expectedVersion int64, update store.SRSUpdate) error {
	card, ok := s.cards[id]
	if !ok {
		return store.ErrCardNotFound
	}
	if card.Version != expectedVersion {
		s.logger.Debug("version conflict",
			slog.String("card_id", id.String()),
			slog.Int64("expected_version", expectedVersion),
			slog.Int64("actual_version", card.Version))
		return store.ErrVersionConflict
	}

	card.Interval = update.State.Interval
	card.Repetitions = update.State.Repetitions
	card.Easiness = update.State.Easiness
	card.NextReviewAt = update.NextReviewAt.UTC()
	card.LastReviewedAt = update.ReviewedAt.UTC()
	card.UpdatedAt = update.ReviewedAt.UTC()
	card.Version++
	s.cards[id] = card
	return nil
}
