package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/store"
)

const cardColumns = `
	c.id, c.deck_id, d.owner_id, c.term, c.definition,
	c.interval_days, c.repetitions, c.easiness,
	c.next_review_at, c.last_reviewed_at, c.version,
	c.created_at, c.updated_at`

// PostgresCardStore implements store.CardStore and store.ReviewCommitter
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	sqlDB  *sql.DB
	logger *slog.Logger
}

var (
	_ store.CardStore       = (*PostgresCardStore)(nil)
	_ store.ReviewCommitter = (*PostgresCardStore)(nil)
)

// NewPostgresCardStore creates a card store on db. If logger is nil, a
// default logger will be used.
func NewPostgresCardStore(db *sql.DB, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStore{
		db:     db,
		sqlDB:  db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// WithTx returns a store whose statements run inside tx.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) *PostgresCardStore {
	return &PostgresCardStore{
		db:     tx,
		sqlDB:  s.sqlDB,
		logger: s.logger,
	}
}

// CreateCard inserts a new card. The deck must exist; card.OwnerID is
// overwritten with the deck's owner.
func (s *PostgresCardStore) CreateCard(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var ownerID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_id FROM decks WHERE id = $1`, card.DeckID,
	).Scan(&ownerID)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			return store.ErrDeckNotFound
		}
		return store.NewStoreError("card", "create", "deck lookup failed", mapped)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cards (
			id, deck_id, term, definition, interval_days, repetitions, easiness,
			next_review_at, last_reviewed_at, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		card.ID, card.DeckID, card.Term, card.Definition,
		card.Interval, card.Repetitions, card.Easiness,
		card.NextReviewAt.UTC(), nullTime(card.LastReviewedAt), card.Version,
		card.CreatedAt.UTC(), card.UpdatedAt.UTC(),
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrDeckNotFound
		}
		log.Error("failed to insert card",
			slog.String("card_id", card.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("card", "create", "insert failed", MapError(err))
	}

	card.OwnerID = ownerID
	return nil
}

// Get implements store.CardStore.
func (s *PostgresCardStore) Get(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE c.id = $1`, id)

	card, err := scanCard(row)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			return nil, store.ErrCardNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get card",
			slog.String("card_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("card", "get", "query failed", mapped)
	}
	return card, nil
}

// ListByDeck implements store.CardStore. Rows come back ordered by
// next_review_at so the index serves the scan; callers must not rely on it.
func (s *PostgresCardStore) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE c.deck_id = $1
		ORDER BY c.next_review_at ASC`, deckID)
	if err != nil {
		log.Error("failed to list cards",
			slog.String("deck_id", deckID.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("card", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	cards := make([]domain.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, store.NewStoreError("card", "list", "scan failed", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "list", "iteration failed", MapError(err))
	}
	return cards, nil
}

// CompareAndSwapSRSState implements store.CardStore.
func (s *PostgresCardStore) CompareAndSwapSRSState(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	update store.SRSUpdate,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET interval_days = $3,
			repetitions = $4,
			easiness = $5,
			next_review_at = $6,
			last_reviewed_at = $7,
			updated_at = $8,
			version = version + 1
		WHERE id = $1 AND version = $2`,
		id, expectedVersion,
		update.State.Interval, update.State.Repetitions, update.State.Easiness,
		update.NextReviewAt.UTC(), update.ReviewedAt.UTC(), update.ReviewedAt.UTC(),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update card schedule",
			slog.String("card_id", id.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("card", "compare_and_swap", "update failed", MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("card", "compare_and_swap", "rows affected unavailable", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return store.NewStoreError("card", "compare_and_swap", "existence check failed", MapError(err))
	}
	if !exists {
		return store.ErrCardNotFound
	}
	return store.ErrVersionConflict
}

// CommitReview implements store.ReviewCommitter by running the swap and the
// log insert in one transaction.
func (s *PostgresCardStore) CommitReview(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	update store.SRSUpdate,
	entry *domain.ReviewLog,
) error {
	if s.sqlDB == nil {
		return fmt.Errorf("%w: store has no database handle", store.ErrTransactionFailed)
	}

	return store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.WithTx(tx).CompareAndSwapSRSState(ctx, id, expectedVersion, update); err != nil {
			return err
		}
		return NewPostgresReviewLogStore(tx, s.logger).Append(ctx, entry)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card         domain.Card
		lastReviewed sql.NullTime
	)
	err := row.Scan(
		&card.ID, &card.DeckID, &card.OwnerID, &card.Term, &card.Definition,
		&card.Interval, &card.Repetitions, &card.Easiness,
		&card.NextReviewAt, &lastReviewed, &card.Version,
		&card.CreatedAt, &card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.NextReviewAt = card.NextReviewAt.UTC()
	if lastReviewed.Valid {
		card.LastReviewedAt = lastReviewed.Time.UTC()
	}
	card.CreatedAt = card.CreatedAt.UTC()
	card.UpdatedAt = card.UpdatedAt.UTC()
	return &card, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
