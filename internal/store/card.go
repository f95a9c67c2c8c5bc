package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
)

// SRSUpdate is the complete set of scheduling fields written by a review.
// NextReviewAt is always derived from ReviewedAt and the new interval, and
// stores stamp the card's updated_at with ReviewedAt.
type SRSUpdate struct {
	State        domain.SRSState
	NextReviewAt time.Time
	ReviewedAt   time.Time
}

// CardStore defines the card persistence the scheduling engine consumes.
type CardStore interface {
	// Get retrieves a card by its unique ID, with OwnerID populated from its deck.
	// Returns ErrCardNotFound if the card does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// CompareAndSwapSRSState writes update to the card only if its current
	// version equals expectedVersion, and increments the version.
	// Returns ErrVersionConflict if the version moved on and
	// ErrCardNotFound if the card does not exist.
	CompareAndSwapSRSState(ctx context.Context, id uuid.UUID, expectedVersion int64, update SRSUpdate) error

	// ListByDeck returns every card in the deck, in no particular order.
	// An unknown deck yields an empty slice.
	ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error)
}

// DeckStore exposes deck ownership.
type DeckStore interface {
	// GetDeck retrieves a deck by ID. Returns ErrDeckNotFound if it does not exist.
	GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error)
}

// ReviewLogStore is the append-only audit trail of applied reviews.
type ReviewLogStore interface {
	// Append records entry. Entries are never updated or deleted.
	Append(ctx context.Context, entry *domain.ReviewLog) error
}

// ReviewCommitter is implemented by stores that can apply a scheduling CAS and
// append its review log as one atomic unit. Either both writes become visible
// or neither does.
type ReviewCommitter interface {
	CommitReview(
		ctx context.Context,
		id uuid.UUID,
		expectedVersion int64,
		update SRSUpdate,
		entry *domain.ReviewLog,
	) error
}
