package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
)

// ReviewRequest is the body of POST /api/cards/{id}/review. The grade range
// is checked by the review service so that out-of-range grades share one
// error path.
type ReviewRequest struct {
	Grade *int `json:"grade" validate:"required"`
}

// CardResponse is a card as returned to clients.
type CardResponse struct {
	ID             uuid.UUID  `json:"id"`
	DeckID         uuid.UUID  `json:"deck_id"`
	Term           string     `json:"term"`
	Definition     string     `json:"definition"`
	Interval       int        `json:"interval"`
	Repetitions    int        `json:"repetitions"`
	Easiness       float64    `json:"easiness"`
	NextReviewAt   time.Time  `json:"next_review_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	Phase          string     `json:"phase"`
	Version        int64      `json:"version"`
}

// ReviewResponse is the outcome of a submitted review.
type ReviewResponse struct {
	Card        CardResponse    `json:"card"`
	Previous    domain.SRSState `json:"previous"`
	LogRecorded bool            `json:"log_recorded"`
}

func cardToResponse(c domain.Card) CardResponse {
	resp := CardResponse{
		ID:           c.ID,
		DeckID:       c.DeckID,
		Term:         c.Term,
		Definition:   c.Definition,
		Interval:     c.Interval,
		Repetitions:  c.Repetitions,
		Easiness:     c.Easiness,
		NextReviewAt: c.NextReviewAt,
		Phase:        string(c.Phase()),
		Version:      c.Version,
	}
	if !c.LastReviewedAt.IsZero() {
		reviewed := c.LastReviewedAt
		resp.LastReviewedAt = &reviewed
	}
	return resp
}

func cardsToResponse(cards []domain.Card) []CardResponse {
	out := make([]CardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardToResponse(c))
	}
	return out
}

func reviewResultToResponse(res *card_review.ReviewResult) ReviewResponse {
	card := cardToResponse(res.Card)
	card.Phase = string(res.Phase)
	return ReviewResponse{
		Card:        card,
		Previous:    res.Previous,
		LogRecorded: res.LogRecorded,
	}
}
