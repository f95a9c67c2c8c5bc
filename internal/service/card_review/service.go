package card_review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
)

// DefaultMaxAttempts is how many read-modify-write cycles SubmitReview makes
// before giving up on a contended card.
const DefaultMaxAttempts = 3

// ReviewResult is the outcome of an applied review.
type ReviewResult struct {
	// Card is the card as persisted by this review.
	Card domain.Card `json:"card"`
	// Previous is the schedule the review was computed from.
	Previous domain.SRSState `json:"previous"`
	// Phase is the card's lifecycle phase after the review.
	Phase domain.Phase `json:"phase"`
	// LogRecorded is false when the schedule was committed but the review log
	// entry could not be written.
	LogRecorded bool `json:"log_recorded"`
}

// Clock supplies the current time. Injected so scheduling is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Service drives review sessions: it answers which cards are due and applies
// graded reviews to the persisted schedule.
type Service interface {
	// GetDueCards returns every card in the deck that is due now, ordered by
	// next review time and then card ID.
	//
	// Returns ErrNotFound if the deck does not exist or is not owned by
	// ownerID, and ErrStoreUnavailable if the store fails. A deck with nothing
	// due yields an empty, non-nil slice.
	GetDueCards(ctx context.Context, deckID, ownerID uuid.UUID) ([]domain.Card, error)

	// SubmitReview grades a card, computes its new schedule and persists the
	// schedule together with a review log entry.
	//
	// The steps are: validate the grade, load the card and check ownership,
	// compute the transition, check the context deadline, then commit with a
	// version check. A lost version race restarts from the load, up to the
	// configured attempt limit.
	//
	// Errors wrap ErrInvalidGrade, ErrNotFound, ErrInvalidState,
	// ErrVersionConflict, ErrStoreUnavailable or the context's error.
	SubmitReview(ctx context.Context, cardID, ownerID uuid.UUID, grade domain.Grade) (*ReviewResult, error)
}
