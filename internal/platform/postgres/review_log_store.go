package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/store"
)

// PostgresReviewLogStore implements store.ReviewLogStore on the review_logs table.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// NewPostgresReviewLogStore creates a review log store on db, which may be a
// transaction.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

// Append implements store.ReviewLogStore.
func (s *PostgresReviewLogStore) Append(ctx context.Context, entry *domain.ReviewLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_logs (id, card_id, owner_id, grade, reviewed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.CardID, entry.OwnerID, int(entry.Grade), entry.ReviewedAt.UTC(),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to append review log",
			slog.String("card_id", entry.CardID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("review_log", "append", "insert failed", MapError(err))
	}
	return nil
}

// ListByCard returns the review history of a card, oldest first.
func (s *PostgresReviewLogStore) ListByCard(ctx context.Context, cardID uuid.UUID) ([]domain.ReviewLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, owner_id, grade, reviewed_at
		FROM review_logs
		WHERE card_id = $1
		ORDER BY reviewed_at ASC, id ASC`, cardID)
	if err != nil {
		return nil, store.NewStoreError("review_log", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	logs := make([]domain.ReviewLog, 0)
	for rows.Next() {
		var (
			l     domain.ReviewLog
			grade int
		)
		if err := rows.Scan(&l.ID, &l.CardID, &l.OwnerID, &grade, &l.ReviewedAt); err != nil {
			return nil, store.NewStoreError("review_log", "list", "scan failed", err)
		}
		l.Grade = domain.Grade(grade)
		l.ReviewedAt = l.ReviewedAt.UTC()
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_log", "list", "iteration failed", err)
	}
	return logs, nil
}
