package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scheduling defaults for a card entering study for the first time.
const (
	DefaultInterval    = 1
	DefaultRepetitions = 0
	DefaultEasiness    = 2.5

	// MinEasiness is the floor of the easiness factor.
	MinEasiness = 1.3

	// MinInterval is the smallest interval, in days, a card may carry.
	MinInterval = 1

	// MaxInterval is the largest interval, in days, the stores can persist
	// (interval_days is a 32-bit INTEGER column).
	MaxInterval = math.MaxInt32
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardDeckIDEmpty is returned when a card's deck ID is empty or nil.
	ErrCardDeckIDEmpty = errors.New("card deck ID cannot be empty")

	// ErrCardTermEmpty is returned when a card has no term.
	ErrCardTermEmpty = errors.New("card term cannot be empty")

	// ErrCardDefinitionEmpty is returned when a card has no definition.
	ErrCardDefinitionEmpty = errors.New("card definition cannot be empty")
)

// SRSState is the part of a card the transition function reads and writes.
type SRSState struct {
	Interval    int     `json:"interval"`
	Repetitions int     `json:"repetitions"`
	Easiness    float64 `json:"easiness"`
}

// Validate checks the scheduling invariants. Violations are reported as
// ErrInvalidState and never silently repaired.
func (s SRSState) Validate() error {
	switch {
	case math.IsNaN(s.Easiness), math.IsInf(s.Easiness, 0):
		return NewValidationError("easiness", "must be a finite number", ErrInvalidState)
	case s.Easiness < MinEasiness:
		return NewValidationError("easiness", "is below the minimum of 1.3", ErrInvalidState)
	case s.Interval < MinInterval:
		return NewValidationError("interval", "must be at least one day", ErrInvalidState)
	case s.Interval > MaxInterval:
		return NewValidationError("interval", "exceeds the maximum schedulable interval", ErrInvalidState)
	case s.Repetitions < 0:
		return NewValidationError("repetitions", "cannot be negative", ErrInvalidState)
	}
	return nil
}

// Card is a flashcard together with its spaced-repetition schedule.
//
// OwnerID is the owner of the card's deck; stores fill it in when loading so
// ownership can be checked without another lookup. Version increases by one
// on every scheduling write and backs optimistic concurrency control.
type Card struct {
	ID             uuid.UUID `json:"id"`
	DeckID         uuid.UUID `json:"deck_id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	Term           string    `json:"term"`
	Definition     string    `json:"definition"`
	Interval       int       `json:"interval"`
	Repetitions    int       `json:"repetitions"`
	Easiness       float64   `json:"easiness"`
	NextReviewAt   time.Time `json:"next_review_at"`
	LastReviewedAt time.Time `json:"last_reviewed_at"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewCard creates a card in deckID with default scheduling parameters,
// due immediately at now.
func NewCard(deckID, ownerID uuid.UUID, term, definition string, now time.Time) (*Card, error) {
	now = now.UTC()
	card := &Card{
		ID:           uuid.New(),
		DeckID:       deckID,
		OwnerID:      ownerID,
		Term:         strings.TrimSpace(term),
		Definition:   strings.TrimSpace(definition),
		Interval:     DefaultInterval,
		Repetitions:  DefaultRepetitions,
		Easiness:     DefaultEasiness,
		NextReviewAt: now,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}
	if c.DeckID == uuid.Nil {
		return ErrCardDeckIDEmpty
	}
	if c.Term == "" {
		return ErrCardTermEmpty
	}
	if c.Definition == "" {
		return ErrCardDefinitionEmpty
	}
	return c.SRSState().Validate()
}

// SRSState returns the card's scheduling projection.
func (c *Card) SRSState() SRSState {
	return SRSState{
		Interval:    c.Interval,
		Repetitions: c.Repetitions,
		Easiness:    c.Easiness,
	}
}

// IsDue reports whether the card should be shown at asOf.
func (c *Card) IsDue(asOf time.Time) bool {
	return !c.NextReviewAt.After(asOf)
}

// Phase reports where the card sits in its scheduling lifecycle.
func (c *Card) Phase() Phase {
	return PhaseOf(c.SRSState(), !c.LastReviewedAt.IsZero())
}
