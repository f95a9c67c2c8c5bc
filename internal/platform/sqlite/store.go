package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

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

// Store implements store.CardStore, store.DeckStore, store.ReviewLogStore
// and store.ReviewCommitter on one SQLite database.
type Store struct {
	db     store.DBTX
	sqlDB  *sql.DB
	logger *slog.Logger
}

var (
	_ store.CardStore       = (*Store)(nil)
	_ store.DeckStore       = (*Store)(nil)
	_ store.ReviewLogStore  = (*Store)(nil)
	_ store.ReviewCommitter = (*Store)(nil)
)

// New wraps an open, migrated database.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		sqlDB:  db,
		logger: logger.With(slog.String("component", "sqlite_store")),
	}
}

func (s *Store) withTx(tx *sql.Tx) *Store {
	return &Store{db: tx, sqlDB: s.sqlDB, logger: s.logger}
}

// CreateDeck inserts a new deck.
func (s *Store) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	if err := deck.Validate(); err != nil {
		return store.NewStoreError("deck", "create", "validation failed",
			errors.Join(store.ErrInvalidEntity, err))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decks (id, owner_id, title, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		deck.ID, deck.OwnerID, deck.Title, deck.Description,
		toNanos(deck.CreatedAt), toNanos(deck.UpdatedAt),
	)
	if err != nil {
		return store.NewStoreError("deck", "create", "insert failed", MapError(err))
	}
	return nil
}

// GetDeck implements store.DeckStore.
func (s *Store) GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	var (
		deck             domain.Deck
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, created_at, updated_at
		FROM decks WHERE id = ?`, id,
	).Scan(&deck.ID, &deck.OwnerID, &deck.Title, &deck.Description, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrDeckNotFound
		}
		return nil, store.NewStoreError("deck", "get", "query failed", MapError(err))
	}
	deck.CreatedAt = fromNanos(created)
	deck.UpdatedAt = fromNanos(updated)
	return &deck, nil
}

// CreateCard inserts a new card and sets card.OwnerID from its deck.
func (s *Store) CreateCard(ctx context.Context, card *domain.Card) error {
	var ownerID uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM decks WHERE id = ?`, card.DeckID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrDeckNotFound
		}
		return store.NewStoreError("card", "create", "deck lookup failed", MapError(err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cards (
			id, deck_id, term, definition, interval_days, repetitions, easiness,
			next_review_at, last_reviewed_at, version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.DeckID, card.Term, card.Definition,
		card.Interval, card.Repetitions, card.Easiness,
		toNanos(card.NextReviewAt), nullNanos(card.LastReviewedAt), card.Version,
		toNanos(card.CreatedAt), toNanos(card.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrDeckNotFound
		}
		return store.NewStoreError("card", "create", "insert failed", MapError(err))
	}

	card.OwnerID = ownerID
	return nil
}

// Get implements store.CardStore.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE c.id = ?`, id)

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get card",
			slog.String("card_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("card", "get", "query failed", MapError(err))
	}
	return card, nil
}

// ListByDeck implements store.CardStore.
func (s *Store) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE c.deck_id = ?`, deckID)
	if err != nil {
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
		return nil, store.NewStoreError("card", "list", "iteration failed", err)
	}
	return cards, nil
}

// CompareAndSwapSRSState implements store.CardStore.
func (s *Store) CompareAndSwapSRSState(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	update store.SRSUpdate,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET interval_days = ?, repetitions = ?, easiness = ?,
			next_review_at = ?, last_reviewed_at = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		update.State.Interval, update.State.Repetitions, update.State.Easiness,
		toNanos(update.NextReviewAt), toNanos(update.ReviewedAt), toNanos(update.ReviewedAt),
		id, expectedVersion,
	)
	if err != nil {
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
		`SELECT EXISTS (SELECT 1 FROM cards WHERE id = ?)`, id,
	).Scan(&exists); err != nil {
		return store.NewStoreError("card", "compare_and_swap", "existence check failed", err)
	}
	if !exists {
		return store.ErrCardNotFound
	}
	return store.ErrVersionConflict
}

// Append implements store.ReviewLogStore.
func (s *Store) Append(ctx context.Context, entry *domain.ReviewLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_logs (id, card_id, owner_id, grade, reviewed_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.CardID, entry.OwnerID, int(entry.Grade), toNanos(entry.ReviewedAt),
	)
	if err != nil {
		return store.NewStoreError("review_log", "append", "insert failed", MapError(err))
	}
	return nil
}

// CommitReview implements store.ReviewCommitter.
func (s *Store) CommitReview(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	update store.SRSUpdate,
	entry *domain.ReviewLog,
) error {
	return store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.withTx(tx)
		if err := txStore.CompareAndSwapSRSState(ctx, id, expectedVersion, update); err != nil {
			return err
		}
		return txStore.Append(ctx, entry)
	})
}

// ReviewLogs returns the review history of a card, oldest first.
func (s *Store) ReviewLogs(ctx context.Context, cardID uuid.UUID) ([]domain.ReviewLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, owner_id, grade, reviewed_at
		FROM review_logs
		WHERE card_id = ?
		ORDER BY reviewed_at ASC, id ASC`, cardID)
	if err != nil {
		return nil, store.NewStoreError("review_log", "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	logs := make([]domain.ReviewLog, 0)
	for rows.Next() {
		var (
			l        domain.ReviewLog
			grade    int
			reviewed int64
		)
		if err := rows.Scan(&l.ID, &l.CardID, &l.OwnerID, &grade, &reviewed); err != nil {
			return nil, store.NewStoreError("review_log", "list", "scan failed", err)
		}
		l.Grade = domain.Grade(grade)
		l.ReviewedAt = fromNanos(reviewed)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card                   domain.Card
		next, created, updated int64
		lastReviewed           sql.NullInt64
	)
	err := row.Scan(
		&card.ID, &card.DeckID, &card.OwnerID, &card.Term, &card.Definition,
		&card.Interval, &card.Repetitions, &card.Easiness,
		&next, &lastReviewed, &card.Version,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}

	card.NextReviewAt = fromNanos(next)
	if lastReviewed.Valid {
		card.LastReviewedAt = fromNanos(lastReviewed.Int64)
	}
	card.CreatedAt = fromNanos(created)
	card.UpdatedAt = fromNanos(updated)
	return &card, nil
}
