package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/store"
)

// PostgresFlashcardStore implements store.FlashcardStore.
type PostgresFlashcardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.FlashcardStore = (*PostgresFlashcardStore)(nil)

// NewFlashcardStore creates a PostgresFlashcardStore on a connection or transaction.
// If logger is nil, a default logger will be used.
func NewFlashcardStore(db store.DBTX, logger *slog.Logger) *PostgresFlashcardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFlashcardStore{db: db, logger: logger.With(slog.String("component", "flashcard_store"))}
}

const flashcardColumns = `f.id, f.deck_id, f.front, f.back, f.last_rating, f.last_reviewed,
	f.last_scheduled, f.last_stability, f.last_difficulty`

// Create implements store.FlashcardStore.
func (s *PostgresFlashcardStore) Create(ctx context.Context, card *domain.Flashcard) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var rating sql.NullString
	if card.LastRating != nil {
		rating = sql.NullString{String: string(*card.LastRating), Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO flashcard (deck_id, front, back, last_rating, last_reviewed,
			last_scheduled, last_stability, last_difficulty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		card.DeckID, card.Front, card.Back, rating,
		nullTime(card.LastReviewed), nullTime(card.LastScheduled),
		nullFloat(card.LastStability), nullFloat(card.LastDifficulty)).Scan(&card.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrDeckNotFound
		}
		s.logger.Error("failed to insert flashcard",
			slog.String("error", err.Error()),
			slog.Int64("deck_id", card.DeckID))
		return store.NewStoreError("flashcard", "create", "insert failed", MapError(err))
	}
	return nil
}

// GetForUser implements store.FlashcardStore.
func (s *PostgresFlashcardStore) GetForUser(ctx context.Context, id int64, userID string) (*domain.Flashcard, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+flashcardColumns+`, d.name
		FROM flashcard f JOIN deck d ON d.id = f.deck_id
		WHERE f.id = $1 AND d.user_id = $2`,
		id, userID)

	due, err := scanDueCard(row)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrNotFoundOrUnauthorized
		}
		return nil, store.NewStoreError("flashcard", "get", "scan failed", err)
	}
	return &due.Flashcard, nil
}

// ListDue implements store.FlashcardStore.
func (s *PostgresFlashcardStore) ListDue(ctx context.Context, userID string, now time.Time, limit int) ([]domain.DueCard, error) {
	if limit <= 0 {
		return []domain.DueCard{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+flashcardColumns+`, d.name
		FROM flashcard f JOIN deck d ON d.id = f.deck_id
		WHERE d.user_id = $1 AND (f.last_scheduled IS NULL OR f.last_scheduled <= $2)
		ORDER BY f.last_scheduled ASC NULLS LAST, f.id ASC
		LIMIT $3`,
		userID, now.UTC(), limit)
	if err != nil {
		return nil, store.NewStoreError("flashcard", "list_due", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	cards := []domain.DueCard{}
	for rows.Next() {
		card, err := scanDueCard(rows)
		if err != nil {
			return nil, store.NewStoreError("flashcard", "list_due", "scan failed", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("flashcard", "list_due", "iterate failed", err)
	}

	s.logger.Debug("loaded due flashcards", slog.Int("count", len(cards)), slog.Int("limit", limit))
	return cards, nil
}

// UpdateReview implements store.FlashcardStore.
func (s *PostgresFlashcardStore) UpdateReview(ctx context.Context, userID string, u domain.ReviewUpdate) error {
	if !u.Rating.Valid() {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidRating)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE flashcard
		SET last_rating = $1, last_reviewed = $2, last_scheduled = $3,
			last_stability = $4, last_difficulty = $5
		WHERE id = $6 AND deck_id IN (SELECT id FROM deck WHERE user_id = $7)`,
		string(u.Rating), u.ReviewedAt.UTC(), u.ScheduledAt.UTC(),
		u.Memory.Stability, u.Memory.Difficulty,
		u.FlashcardID, userID)
	if err != nil {
		s.logger.Error("failed to update flashcard review",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", u.FlashcardID))
		return store.NewStoreError("flashcard", "update_review", "update failed", MapError(err))
	}
	return CheckRowsAffected(res, store.ErrNotFoundOrUnauthorized)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDueCard(row rowScanner) (*domain.DueCard, error) {
	var (
		card                  domain.DueCard
		rating                sql.NullString
		reviewed, scheduled   sql.NullTime
		stability, difficulty sql.NullFloat64
	)
	err := row.Scan(&card.ID, &card.DeckID, &card.Front, &card.Back, &rating,
		&reviewed, &scheduled, &stability, &difficulty, &card.DeckName)
	if err != nil {
		return nil, MapError(err)
	}

	if rating.Valid {
		r := domain.Rating(rating.String)
		card.LastRating = &r
	}
	if reviewed.Valid {
		t := reviewed.Time.UTC()
		card.LastReviewed = &t
	}
	if scheduled.Valid {
		t := scheduled.Time.UTC()
		card.LastScheduled = &t
	}
	if stability.Valid {
		card.LastStability = &stability.Float64
	}
	if difficulty.Valid {
		card.LastDifficulty = &difficulty.Float64
	}
	return &card, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
