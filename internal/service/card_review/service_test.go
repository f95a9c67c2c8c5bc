package card_review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/domain/srs"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/platform/memory"
	"github.com/phrazzld/scry-srs/internal/platform/metrics"
	"github.com/phrazzld/scry-srs/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc   Service
	store *memory.Store
	deck  *domain.Deck
	owner uuid.UUID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	mem := memory.New(nil)
	owner := uuid.New()
	deck, err := domain.NewDeck(owner, "Spanish verbs", "", testNow.Add(-48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, mem.CreateDeck(context.Background(), deck))

	srsService, err := srs.NewDefaultService()
	require.NoError(t, err)

	opts = append([]Option{WithClock(fixedClock{now: testNow})}, opts...)
	return &fixture{
		svc:   NewService(mem, mem, mem, srsService, nil, opts...),
		store: mem,
		deck:  deck,
		owner: owner,
	}
}

// addCard stores a card with the given schedule, due at nextReview.
func (f *fixture) addCard(t *testing.T, state domain.SRSState, nextReview time.Time) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(f.deck.ID, f.owner, "hablar", "to speak", testNow.Add(-24*time.Hour))
	require.NoError(t, err)
	card.Interval = state.Interval
	card.Repetitions = state.Repetitions
	card.Easiness = state.Easiness
	card.NextReviewAt = nextReview
	require.NoError(t, f.store.CreateCard(context.Background(), card))
	return card
}

func TestSubmitReview_ConcreteCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state domain.SRSState
		grade domain.Grade
		check func(t *testing.T, got domain.SRSState)
	}{
		{
			name:  "grade 4 keeps easiness and multiplies interval",
			state: domain.SRSState{Interval: 6, Repetitions: 2, Easiness: 2.5},
			grade: 4,
			check: func(t *testing.T, got domain.SRSState) {
				assert.Equal(t, domain.SRSState{Interval: 15, Repetitions: 3, Easiness: 2.5}, got)
			},
		},
		{
			name:  "second success jumps to six days",
			state: domain.SRSState{Interval: 1, Repetitions: 1, Easiness: 2.5},
			grade: 5,
			check: func(t *testing.T, got domain.SRSState) {
				assert.Equal(t, 2, got.Repetitions)
				assert.Equal(t, 6, got.Interval)
				assert.Greater(t, got.Easiness, 2.5)
			},
		},
		{
			name:  "failure resets without easiness penalty",
			state: domain.SRSState{Interval: 10, Repetitions: 3, Easiness: 2.5},
			grade: 1,
			check: func(t *testing.T, got domain.SRSState) {
				assert.Equal(t, domain.SRSState{Interval: 1, Repetitions: 0, Easiness: 2.5}, got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			card := f.addCard(t, tt.state, testNow.Add(-time.Hour))

			result, err := f.svc.SubmitReview(context.Background(), card.ID, f.owner, tt.grade)
			require.NoError(t, err)

			tt.check(t, result.Card.SRSState())
			assert.Equal(t, tt.state, result.Previous)
			assert.True(t, result.LogRecorded)
			assert.Equal(t, int64(2), result.Card.Version)
			assert.Equal(t, testNow, result.Card.LastReviewedAt)
			assert.Equal(t, testNow.AddDate(0, 0, result.Card.Interval), result.Card.NextReviewAt)

			stored, err := f.store.Get(context.Background(), card.ID)
			require.NoError(t, err)
			assert.Equal(t, result.Card.SRSState(), stored.SRSState())
			assert.Equal(t, result.Card.Version, stored.Version)
			assert.True(t, result.Card.NextReviewAt.Equal(stored.NextReviewAt))

			logs := f.store.ReviewLogs(card.ID)
			require.Len(t, logs, 1)
			assert.Equal(t, tt.grade, logs[0].Grade)
			assert.Equal(t, f.owner, logs[0].OwnerID)
			assert.Equal(t, testNow, logs[0].ReviewedAt)
		})
	}
}

func TestSubmitReview_Phases(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	card := f.addCard(t, domain.SRSState{Interval: 1, Repetitions: 0, Easiness: 2.5}, testNow)
	ctx := context.Background()

	steps := []struct {
		grade domain.Grade
		phase domain.Phase
	}{
		{grade: 4, phase: domain.PhaseLearning},
		{grade: 5, phase: domain.PhaseReviewing},
		{grade: 2, phase: domain.PhaseLapsed},
		{grade: 3, phase: domain.PhaseLearning},
	}
	for i, step := range steps {
		result, err := f.svc.SubmitReview(ctx, card.ID, f.owner, step.grade)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.phase, result.Phase, "step %d", i)
	}
	assert.Len(t, f.store.ReviewLogs(card.ID), len(steps))
}

func TestSubmitReview_InvalidGrade(t *testing.T) {
	t.Parallel()

	for _, grade := range []domain.Grade{0, 6, -1} {
		cards := &MockCardStore{}
		decks := &MockDeckStore{}
		logs := &MockReviewLogStore{}
		svc := NewService(cards, decks, logs, mustSRS(t), nil)

		_, err := svc.SubmitReview(context.Background(), uuid.New(), uuid.New(), grade)

		assert.ErrorIs(t, err, ErrInvalidGrade)
		var serviceErr *ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, "submit_review", serviceErr.Operation)
		cards.AssertNotCalled(t, "Get")
		logs.AssertNotCalled(t, "Append")
	}
}

func TestSubmitReview_NotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	card := f.addCard(t, domain.SRSState{Interval: 1, Repetitions: 0, Easiness: 2.5}, testNow)
	ctx := context.Background()

	_, missingErr := f.svc.SubmitReview(ctx, uuid.New(), f.owner, 4)
	_, foreignErr := f.svc.SubmitReview(ctx, card.ID, uuid.New(), 4)

	assert.ErrorIs(t, missingErr, ErrNotFound)
	assert.ErrorIs(t, foreignErr, ErrNotFound)
	assert.Equal(t, missingErr.Error(), foreignErr.Error(), "absence and foreign ownership look the same")

	stored, err := f.store.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Empty(t, f.store.ReviewLogs(card.ID))
}

func TestSubmitReview_InvalidState(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	corrupt := &domain.Card{
		ID:          uuid.New(),
		DeckID:      uuid.New(),
		OwnerID:     owner,
		Interval:    1,
		Repetitions: 2,
		Easiness:    1.1,
		Version:     4,
	}

	cards := &MockCardStore{}
	cards.On("Get", mock.Anything, corrupt.ID).Return(corrupt, nil)
	logs := &MockReviewLogStore{}
	svc := NewService(cards, &MockDeckStore{}, logs, mustSRS(t), nil)

	_, err := svc.SubmitReview(context.Background(), corrupt.ID, owner, 4)

	assert.ErrorIs(t, err, ErrInvalidState)
	cards.AssertNotCalled(t, "CompareAndSwapSRSState")
	logs.AssertNotCalled(t, "Append")
}

func TestSubmitReview_RetriesVersionConflict(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	card := newMockCard(t, owner)

	cards := &MockCardStore{}
	cards.On("Get", mock.Anything, card.ID).Return(card, nil).Twice()
	cards.On("CompareAndSwapSRSState", mock.Anything, card.ID, int64(1), mock.Anything).
		Return(store.ErrVersionConflict).Once()
	cards.On("CompareAndSwapSRSState", mock.Anything, card.ID, int64(1), mock.Anything).
		Return(nil).Once()
	logs := &MockReviewLogStore{}
	logs.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	svc := NewService(cards, &MockDeckStore{}, logs, mustSRS(t), nil, WithClock(fixedClock{now: testNow}))
	result, err := svc.SubmitReview(context.Background(), card.ID, owner, 5)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Card.Repetitions)
	cards.AssertExpectations(t)
	logs.AssertExpectations(t)
}

func TestSubmitReview_ConflictExhaustsAttempts(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	card := newMockCard(t, owner)

	cards := &MockCardStore{}
	cards.On("Get", mock.Anything, card.ID).Return(card, nil)
	cards.On("CompareAndSwapSRSState", mock.Anything, card.ID, int64(1), mock.Anything).
		Return(store.ErrVersionConflict)
	logs := &MockReviewLogStore{}

	svc := NewService(cards, &MockDeckStore{}, logs, mustSRS(t), nil, WithMaxAttempts(4))
	_, err := svc.SubmitReview(context.Background(), card.ID, owner, 3)

	assert.ErrorIs(t, err, ErrVersionConflict)
	cards.AssertNumberOfCalls(t, "Get", 4)
	cards.AssertNumberOfCalls(t, "CompareAndSwapSRSState", 4)
	logs.AssertNotCalled(t, "Append")
}

func TestSubmitReview_StoreUnavailableIsNotRetried(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	card := newMockCard(t, owner)
	dbErr := errors.New("connection refused")

	t.Run("load", func(t *testing.T) {
		t.Parallel()
		cards := &MockCardStore{}
		cards.On("Get", mock.Anything, card.ID).Return(nil, dbErr)
		svc := NewService(cards, &MockDeckStore{}, &MockReviewLogStore{}, mustSRS(t), nil)

		_, err := svc.SubmitReview(context.Background(), card.ID, owner, 4)

		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, dbErr)
		cards.AssertNumberOfCalls(t, "Get", 1)
	})

	t.Run("commit", func(t *testing.T) {
		t.Parallel()
		cards := &MockCardStore{}
		cards.On("Get", mock.Anything, card.ID).Return(card, nil)
		cards.On("CompareAndSwapSRSState", mock.Anything, card.ID, int64(1), mock.Anything).Return(dbErr)
		logs := &MockReviewLogStore{}
		svc := NewService(cards, &MockDeckStore{}, logs, mustSRS(t), nil)

		_, err := svc.SubmitReview(context.Background(), card.ID, owner, 4)

		assert.ErrorIs(t, err, ErrStoreUnavailable)
		cards.AssertNumberOfCalls(t, "CompareAndSwapSRSState", 1)
		logs.AssertNotCalled(t, "Append")
	})
}

func TestSubmitReview_AtomicCommitter(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	card := newMockCard(t, owner)

	cards := &MockCommittingCardStore{}
	cards.On("Get", mock.Anything, card.ID).Return(card, nil)
	cards.On("CommitReview", mock.Anything, card.ID, int64(1),
		mock.MatchedBy(func(u store.SRSUpdate) bool {
			return u.State == domain.SRSState{Interval: 1, Repetitions: 1, Easiness: 2.5} &&
				u.ReviewedAt.Equal(testNow) &&
				u.NextReviewAt.Equal(testNow.AddDate(0, 0, 1))
		}),
		mock.MatchedBy(func(e *domain.ReviewLog) bool {
			return e.CardID == card.ID && e.OwnerID == owner && e.Grade == 4
		}),
	).Return(nil).Once()
	logs := &MockReviewLogStore{}

	svc := NewService(cards, &MockDeckStore{}, logs, mustSRS(t), nil, WithClock(fixedClock{now: testNow}))
	result, err := svc.SubmitReview(context.Background(), card.ID, owner, 4)

	require.NoError(t, err)
	assert.True(t, result.LogRecorded)
	cards.AssertExpectations(t)
	cards.AssertNotCalled(t, "CompareAndSwapSRSState")
	logs.AssertNotCalled(t, "Append")
}

func TestSubmitReview_LogFailureIsReported(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	card := f.addCard(t, domain.SRSState{Interval: 1, Repetitions: 0, Easiness: 2.5}, testNow)
	f.store.FailLogAppends(errors.New("log table locked"))

	log, buf := logger.NewBufferLogger()
	reg := prometheus.NewRegistry()
	recorder := metrics.New(reg)
	svc := NewService(cardStoreOnly{f.store}, f.store, f.store, mustSRS(t), log,
		WithClock(fixedClock{now: testNow}), WithMetrics(recorder))

	result, err := svc.SubmitReview(context.Background(), card.ID, f.owner, 5)

	require.NoError(t, err, "the schedule commit stands")
	assert.False(t, result.LogRecorded)
	stored, err := f.store.Get(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, 1, stored.Repetitions)
	assert.Empty(t, f.store.ReviewLogs(card.ID))

	entry, ok := buf.Find("review applied but review log append failed")
	require.True(t, ok)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, card.ID.String(), entry["card_id"])
	expected := `
# HELP srs_review_log_failures_total Applied reviews whose review log entry could not be written.
# TYPE srs_review_log_failures_total counter
srs_review_log_failures_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "srs_review_log_failures_total"))
}

func TestSubmitReview_AtomicLogFailureLeavesCardUntouched(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	card := f.addCard(t, domain.SRSState{Interval: 1, Repetitions: 0, Easiness: 2.5}, testNow)
	f.store.FailLogAppends(errors.New("log table locked"))

	_, err := f.svc.SubmitReview(context.Background(), card.ID, f.owner, 5)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	stored, getErr := f.store.Get(context.Background(), card.ID)
	require.NoError(t, getErr)
	assert.Equal(t, int64(1), stored.Version)
}

func TestSubmitReview_DeadlineBeforeCommit(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	card := newMockCard(t, owner)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cards := &MockCardStore{}
	cards.On("Get", mock.Anything, card.ID).
		Run(func(mock.Arguments) { cancel() }).
		Return(card, nil)
	logs := &MockReviewLogStore{}
	svc := NewService(cards, &MockDeckStore{}, logs, mustSRS(t), nil)

	_, err := svc.SubmitReview(ctx, card.ID, owner, 4)

	assert.ErrorIs(t, err, context.Canceled)
	cards.AssertNotCalled(t, "CompareAndSwapSRSState")
	logs.AssertNotCalled(t, "Append")
}

func TestSubmitReview_ExpiredDeadline(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	card := f.addCard(t, domain.SRSState{Interval: 1, Repetitions: 0, Easiness: 2.5}, testNow)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := f.svc.SubmitReview(ctx, card.ID, f.owner, 4)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	stored, getErr := f.store.Get(context.Background(), card.ID)
	require.NoError(t, getErr)
	assert.Equal(t, int64(1), stored.Version)
}

func mustSRS(t *testing.T) srs.Service {
	t.Helper()
	svc, err := srs.NewDefaultService()
	require.NoError(t, err)
	return svc
}

func newMockCard(t *testing.T, owner uuid.UUID) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(uuid.New(), owner, "term", "definition", testNow.Add(-time.Hour))
	require.NoError(t, err)
	return card
}

func TestSubmitReview_ResultMatchesStoredTimestamps(t *testing.T) {
	t.Parallel()
	// PostgreSQL stores microseconds; a clock with nanoseconds must not leak
	// a finer timestamp into the response than the row holds.
	clockNow := time.Date(2025, 3, 10, 9, 0, 0, 123456789, time.UTC)
	f := newFixture(t, WithClock(fixedClock{now: clockNow}))
	card := f.addCard(t, domain.SRSState{Interval: 6, Repetitions: 2, Easiness: 2.5}, testNow.Add(-time.Hour))

	result, err := f.svc.SubmitReview(context.Background(), card.ID, f.owner, 4)
	require.NoError(t, err)

	reviewedAt := clockNow.Truncate(time.Microsecond)
	assert.Equal(t, reviewedAt, result.Card.LastReviewedAt)
	assert.Equal(t, reviewedAt, result.Card.UpdatedAt)
	assert.Equal(t, reviewedAt.AddDate(0, 0, 15), result.Card.NextReviewAt)

	stored, err := f.store.Get(context.Background(), card.ID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(result.Card.UpdatedAt), "updated_at comes from the review time")
	assert.True(t, stored.LastReviewedAt.Equal(result.Card.LastReviewedAt))
	assert.True(t, stored.NextReviewAt.Equal(result.Card.NextReviewAt))
	assert.Equal(t, stored.Version, result.Card.Version)
}
