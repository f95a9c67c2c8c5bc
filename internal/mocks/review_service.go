package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
)

// SubmitReviewCall records one SubmitReview invocation.
type SubmitReviewCall struct {
	CardID  uuid.UUID
	OwnerID uuid.UUID
	Grade   domain.Grade
}

// GetDueCardsCall records one GetDueCards invocation.
type GetDueCardsCall struct {
	DeckID  uuid.UUID
	OwnerID uuid.UUID
}

// MockReviewService implements card_review.Service.
type MockReviewService struct {
	GetDueCardsFn  func(ctx context.Context, deckID, ownerID uuid.UUID) ([]domain.Card, error)
	SubmitReviewFn func(ctx context.Context, cardID, ownerID uuid.UUID, grade domain.Grade) (*card_review.ReviewResult, error)

	// Defaults returned when no function is set.
	DueCards []domain.Card
	Result   *card_review.ReviewResult
	Err      error

	mu                sync.Mutex
	getDueCardsCalls  []GetDueCardsCall
	submitReviewCalls []SubmitReviewCall
}

var _ card_review.Service = (*MockReviewService)(nil)

// GetDueCards implements card_review.Service.
func (m *MockReviewService) GetDueCards(ctx context.Context, deckID, ownerID uuid.UUID) ([]domain.Card, error) {
	m.mu.Lock()
	m.getDueCardsCalls = append(m.getDueCardsCalls, GetDueCardsCall{DeckID: deckID, OwnerID: ownerID})
	m.mu.Unlock()

	if m.GetDueCardsFn != nil {
		return m.GetDueCardsFn(ctx, deckID, ownerID)
	}
	return m.DueCards, m.Err
}

// SubmitReview implements card_review.Service.
func (m *MockReviewService) SubmitReview(
	ctx context.Context,
	cardID, ownerID uuid.UUID,
	grade domain.Grade,
) (*card_review.ReviewResult, error) {
	m.mu.Lock()
	m.submitReviewCalls = append(m.submitReviewCalls, SubmitReviewCall{CardID: cardID, OwnerID: ownerID, Grade: grade})
	m.mu.Unlock()

	if m.SubmitReviewFn != nil {
		return m.SubmitReviewFn(ctx, cardID, ownerID, grade)
	}
	return m.Result, m.Err
}

// GetDueCardsCalls returns a copy of the recorded GetDueCards calls.
func (m *MockReviewService) GetDueCardsCalls() []GetDueCardsCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GetDueCardsCall(nil), m.getDueCardsCalls...)
}

// SubmitReviewCalls returns a copy of the recorded SubmitReview calls.
func (m *MockReviewService) SubmitReviewCalls() []SubmitReviewCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SubmitReviewCall(nil), m.submitReviewCalls...)
}
