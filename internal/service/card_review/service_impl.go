package card_review

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/domain/srs"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/platform/metrics"
	"github.com/phrazzld/scry-srs/internal/store"
	"golang.org/x/sync/singleflight"
)

// Verify interface compliance at compile time
var _ Service = (*reviewService)(nil)

type reviewService struct {
	cards       store.CardStore
	decks       store.DeckStore
	logs        store.ReviewLogStore
	srsService  srs.Service
	clock       Clock
	maxAttempts int
	metrics     *metrics.Recorder
	loads       singleflight.Group
	logger      *slog.Logger
}

// NewService creates a review Service. If cards also implements
// store.ReviewCommitter, schedule updates and review logs are committed
// atomically; otherwise the log is appended after the schedule commits.
func NewService(
	cards store.CardStore,
	decks store.DeckStore,
	logs store.ReviewLogStore,
	srsService srs.Service,
	logger *slog.Logger,
	opts ...Option,
) Service {
	if cards == nil {
		panic("cards cannot be nil")
	}
	if decks == nil {
		panic("decks cannot be nil")
	}
	if logs == nil {
		panic("logs cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &reviewService{
		cards:       cards,
		decks:       decks,
		logs:        logs,
		srsService:  srsService,
		clock:       SystemClock{},
		maxAttempts: DefaultMaxAttempts,
		logger:      logger.With(slog.String("component", "card_review_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetDueCards implements Service.GetDueCards.
func (s *reviewService) GetDueCards(ctx context.Context, deckID, ownerID uuid.UUID) ([]domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("deck_id", deckID.String()),
		slog.String("owner_id", ownerID.String()),
	)

	deck, err := s.decks.GetDeck(ctx, deckID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("deck not found")
			return nil, NewGetDueCardsError("deck not found", ErrNotFound)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, NewGetDueCardsError("request cancelled", ctxErr)
		}
		log.Error("failed to load deck", slog.String("error", err.Error()))
		return nil, NewGetDueCardsError("failed to load deck", unavailable(err))
	}
	if !deck.OwnedBy(ownerID) {
		log.Warn("deck not owned by caller", slog.String("actual_owner_id", deck.OwnerID.String()))
		return nil, NewGetDueCardsError("deck not found", ErrNotFound)
	}

	// Identical concurrent loads of one deck share a single store query. The
	// shared query is detached from whichever caller started it so one
	// caller's cancellation cannot fail the others; each caller still stops
	// waiting when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(deckID.String(), func() (interface{}, error) {
		return s.cards.ListByDeck(loadCtx, deckID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, NewGetDueCardsError("request cancelled", ctx.Err())
	}
	if res.Err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, NewGetDueCardsError("request cancelled", ctxErr)
		}
		log.Error("failed to list cards", slog.String("error", res.Err.Error()))
		return nil, NewGetDueCardsError("failed to list cards", unavailable(res.Err))
	}
	shared := res.Shared

	due := srs.CollectDue(res.Val.([]domain.Card), s.clock.Now())
	s.metrics.DueCardsServed(len(due))

	log.Debug("due cards selected",
		slog.Int("due", len(due)),
		slog.Bool("shared_load", shared))
	return due, nil
}

// SubmitReview implements Service.SubmitReview.
func (s *reviewService) SubmitReview(
	ctx context.Context,
	cardID, ownerID uuid.UUID,
	grade domain.Grade,
) (*ReviewResult, error) {
	started := time.Now()
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("card_id", cardID.String()),
		slog.String("owner_id", ownerID.String()),
		slog.Int("grade", int(grade)),
	)

	result, err := s.submitReview(ctx, log, cardID, ownerID, grade)
	s.metrics.ReviewCompleted(resultLabel(err), time.Since(started))
	return result, err
}

func (s *reviewService) submitReview(
	ctx context.Context,
	log *slog.Logger,
	cardID, ownerID uuid.UUID,
	grade domain.Grade,
) (*ReviewResult, error) {
	if err := grade.Validate(); err != nil {
		log.Warn("invalid grade")
		return nil, NewSubmitReviewError("invalid grade", err)
	}

	for attempt := 1; ; attempt++ {
		result, err := s.attemptReview(ctx, log, cardID, ownerID, grade)
		if err == nil {
			log.Debug("review applied",
				slog.Int("attempt", attempt),
				slog.Int("interval", result.Card.Interval),
				slog.Int("repetitions", result.Card.Repetitions),
				slog.Float64("easiness", result.Card.Easiness),
				slog.Time("next_review_at", result.Card.NextReviewAt),
				slog.Bool("log_recorded", result.LogRecorded))
			return result, nil
		}

		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, err
		}

		s.metrics.VersionConflict()
		if attempt >= s.maxAttempts {
			log.Warn("giving up after repeated version conflicts", slog.Int("attempts", attempt))
			return nil, NewSubmitReviewError("card was modified concurrently", ErrVersionConflict)
		}
		log.Debug("version conflict, retrying", slog.Int("attempt", attempt))
	}
}

// attemptReview runs one read-modify-write cycle. A lost version race is
// returned as the raw store.ErrVersionConflict so the caller can retry.
func (s *reviewService) attemptReview(
	ctx context.Context,
	log *slog.Logger,
	cardID, ownerID uuid.UUID,
	grade domain.Grade,
) (*ReviewResult, error) {
	card, err := s.cards.Get(ctx, cardID)
	if err != nil {
		return nil, s.storeFailure(ctx, log, "failed to load card", err)
	}
	if card.OwnerID != ownerID {
		log.Warn("card not owned by caller", slog.String("actual_owner_id", card.OwnerID.String()))
		return nil, NewSubmitReviewError("card not found", ErrNotFound)
	}

	// PostgreSQL keeps microseconds; the returned card must match the stored row.
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	scheduled, err := s.srsService.Schedule(card, grade, now)
	if err != nil {
		log.Error("stored card violates scheduling invariants",
			slog.String("error", err.Error()),
			slog.Int("interval", card.Interval),
			slog.Int("repetitions", card.Repetitions),
			slog.Float64("easiness", card.Easiness))
		return nil, NewSubmitReviewError("card has an invalid schedule", err)
	}

	update := store.SRSUpdate{
		State:        scheduled.SRSState(),
		NextReviewAt: scheduled.NextReviewAt,
		ReviewedAt:   now,
	}
	entry := domain.NewReviewLog(card.ID, ownerID, grade, now)

	// Nothing has been written yet; an expired deadline aborts cleanly.
	if err := ctx.Err(); err != nil {
		log.Warn("deadline reached before commit", slog.String("error", err.Error()))
		return nil, NewSubmitReviewError("deadline reached before commit", err)
	}

	logRecorded := true
	if committer, ok := s.cards.(store.ReviewCommitter); ok {
		if err := committer.CommitReview(ctx, card.ID, card.Version, update, entry); err != nil {
			return nil, s.commitFailure(ctx, log, err)
		}
	} else {
		if err := s.cards.CompareAndSwapSRSState(ctx, card.ID, card.Version, update); err != nil {
			return nil, s.commitFailure(ctx, log, err)
		}
		// The schedule is committed; the log append must not be cut short by
		// the caller's deadline.
		if err := s.logs.Append(context.WithoutCancel(ctx), entry); err != nil {
			logRecorded = false
			s.metrics.LogFailure()
			log.Error("review applied but review log append failed",
				slog.String("review_log_id", entry.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	scheduled.Version = card.Version + 1
	return &ReviewResult{
		Card:        *scheduled,
		Previous:    card.SRSState(),
		Phase:       scheduled.Phase(),
		LogRecorded: logRecorded,
	}, nil
}

func (s *reviewService) commitFailure(ctx context.Context, log *slog.Logger, err error) error {
	if errors.Is(err, store.ErrVersionConflict) {
		return store.ErrVersionConflict
	}
	return s.storeFailure(ctx, log, "failed to commit review", err)
}

func (s *reviewService) storeFailure(ctx context.Context, log *slog.Logger, message string, err error) error {
	switch {
	case store.IsNotFoundError(err):
		log.Debug("card not found")
		return NewSubmitReviewError("card not found", ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return NewSubmitReviewError("request cancelled", err)
	case ctx.Err() != nil:
		return NewSubmitReviewError("request cancelled", ctx.Err())
	default:
		log.Error(message, slog.String("error", err.Error()))
		return NewSubmitReviewError(message, unavailable(err))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultApplied
	case errors.Is(err, ErrInvalidGrade):
		return metrics.ResultInvalidGrade
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrInvalidState):
		return metrics.ResultInvalidState
	case errors.Is(err, ErrVersionConflict):
		return metrics.ResultConflict
	case errors.Is(err, ErrStoreUnavailable):
		return metrics.ResultStoreUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return metrics.ResultDeadline
	default:
		return metrics.ResultError
	}
}
