package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewLog is the append-only audit record of one applied review.
// It is written once per successful transition and never for rejected reviews.
type ReviewLog struct {
	ID         uuid.UUID `json:"id"`
	CardID     uuid.UUID `json:"card_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Grade      Grade     `json:"grade"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// NewReviewLog creates a log entry for a review at reviewedAt.
func NewReviewLog(cardID, ownerID uuid.UUID, grade Grade, reviewedAt time.Time) *ReviewLog {
	return &ReviewLog{
		ID:         uuid.New(),
		CardID:     cardID,
		OwnerID:    ownerID,
		Grade:      grade,
		ReviewedAt: reviewedAt.UTC(),
	}
}
