package card_review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockCardStore is a testify mock of store.CardStore without commit support.
type MockCardStore struct {
	mock.Mock
}

func (m *MockCardStore) Get(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardStore) CompareAndSwapSRSState(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	update store.SRSUpdate,
) error {
	args := m.Called(ctx, id, expectedVersion, update)
	return args.Error(0)
}

func (m *MockCardStore) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	args := m.Called(ctx, deckID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}

// MockCommittingCardStore adds store.ReviewCommitter to MockCardStore.
type MockCommittingCardStore struct {
	MockCardStore
}

func (m *MockCommittingCardStore) CommitReview(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	update store.SRSUpdate,
	entry *domain.ReviewLog,
) error {
	args := m.Called(ctx, id, expectedVersion, update, entry)
	return args.Error(0)
}

// MockDeckStore is a testify mock of store.DeckStore.
type MockDeckStore struct {
	mock.Mock
}

func (m *MockDeckStore) GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deck), args.Error(1)
}

// MockReviewLogStore is a testify mock of store.ReviewLogStore.
type MockReviewLogStore struct {
	mock.Mock
}

func (m *MockReviewLogStore) Append(ctx context.Context, entry *domain.ReviewLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// fixedClock always reports the same instant.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// cardStoreOnly hides every method of the wrapped store except those of
// store.CardStore, forcing the non-atomic commit path.
type cardStoreOnly struct {
	store.CardStore
}
