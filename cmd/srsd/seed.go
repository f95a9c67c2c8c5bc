package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
)

type seedCard struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// seedDeck creates a deck for owner and one card per entry in r. Cards are
// validated before anything is written.
func seedDeck(
	ctx context.Context,
	s seeder,
	owner uuid.UUID,
	title string,
	r io.Reader,
	now time.Time,
) (*domain.Deck, int, error) {
	var entries []seedCard
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, 0, fmt.Errorf("failed to decode card file: %w", err)
	}

	deck, err := domain.NewDeck(owner, title, "", now)
	if err != nil {
		return nil, 0, err
	}

	cards := make([]*domain.Card, 0, len(entries))
	for i, e := range entries {
		card, err := domain.NewCard(deck.ID, owner, e.Term, e.Definition, now)
		if err != nil {
			return nil, 0, fmt.Errorf("card %d: %w", i, err)
		}
		cards = append(cards, card)
	}

	if err := s.CreateDeck(ctx, deck); err != nil {
		return nil, 0, fmt.Errorf("failed to create deck: %w", err)
	}
	for i, card := range cards {
		if err := s.CreateCard(ctx, card); err != nil {
			return deck, i, fmt.Errorf("failed to create card %d: %w", i, err)
		}
	}
	return deck, len(cards), nil
}
