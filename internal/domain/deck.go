package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Deck validation errors
var (
	ErrDeckOwnerEmpty = errors.New("deck owner ID cannot be empty")
	ErrDeckTitleEmpty = errors.New("deck title cannot be empty")
)

// Deck groups cards and carries their ownership.
type Deck struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewDeck creates a deck owned by ownerID.
func NewDeck(ownerID uuid.UUID, title, description string, now time.Time) (*Deck, error) {
	now = now.UTC()
	deck := &Deck{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := deck.Validate(); err != nil {
		return nil, err
	}
	return deck, nil
}

// Validate checks if the Deck has valid data.
func (d *Deck) Validate() error {
	if d.OwnerID == uuid.Nil {
		return ErrDeckOwnerEmpty
	}
	if d.Title == "" {
		return ErrDeckTitleEmpty
	}
	return nil
}

// OwnedBy reports whether ownerID owns the deck.
func (d *Deck) OwnedBy(ownerID uuid.UUID) bool {
	return ownerID != uuid.Nil && d.OwnerID == ownerID
}
