package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/store"
)

// FlashcardStore implements store.FlashcardStore.
type FlashcardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.FlashcardStore = (*FlashcardStore)(nil)

// NewFlashcardStore creates a FlashcardStore on db, which may be a *sql.DB or *sql.Tx.
func NewFlashcardStore(db store.DBTX, logger *slog.Logger) *FlashcardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FlashcardStore{db: db, logger: logger.With("component", "flashcard_store")}
}

const flashcardColumns = `f.id, f.deck_id, f.front, f.back, f.last_rating, f.last_reviewed,
	f.last_scheduled, f.last_stability, f.last_difficulty`

// Create implements store.FlashcardStore.
func (s *FlashcardStore) Create(ctx context.Context, card *domain.Flashcard) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var rating sql.NullString
	if card.LastRating != nil {
		rating = sql.NullString{String: string(*card.LastRating), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO flashcard (deck_id, front, back, last_rating, last_reviewed,
			last_scheduled, last_stability, last_difficulty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		card.DeckID, card.Front, card.Back, rating,
		formatNullTime(card.LastReviewed), formatNullTime(card.LastScheduled),
		nullFloat(card.LastStability), nullFloat(card.LastDifficulty))
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrDeckNotFound
		}
		s.logger.Error("failed to insert flashcard", "error", err, "deck_id", card.DeckID)
		return store.NewStoreError("flashcard", "create", "insert failed", MapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.NewStoreError("flashcard", "create", "read id", err)
	}
	card.ID = id
	return nil
}

// GetForUser implements store.FlashcardStore.
func (s *FlashcardStore) GetForUser(ctx context.Context, id int64, userID string) (*domain.Flashcard, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+flashcardColumns+`, d.name
		FROM flashcard f JOIN deck d ON d.id = f.deck_id
		WHERE f.id = ? AND d.user_id = ?`,
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
func (s *FlashcardStore) ListDue(ctx context.Context, userID string, now time.Time, limit int) ([]domain.DueCard, error) {
	if limit <= 0 {
		return []domain.DueCard{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+flashcardColumns+`, d.name
		FROM flashcard f JOIN deck d ON d.id = f.deck_id
		WHERE d.user_id = ? AND (f.last_scheduled IS NULL OR f.last_scheduled <= ?)
		ORDER BY f.last_scheduled ASC NULLS LAST, f.id ASC
		LIMIT ?`,
		userID, formatTime(now), limit)
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

	s.logger.Debug("loaded due flashcards", "count", len(cards), "limit", limit)
	return cards, nil
}

// UpdateReview implements store.FlashcardStore.
func (s *FlashcardStore) UpdateReview(ctx context.Context, userID string, u domain.ReviewUpdate) error {
	if !u.Rating.Valid() {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidRating)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE flashcard
		SET last_rating = ?, last_reviewed = ?, last_scheduled = ?,
			last_stability = ?, last_difficulty = ?
		WHERE id = ? AND deck_id IN (SELECT id FROM deck WHERE user_id = ?)`,
		string(u.Rating), formatTime(u.ReviewedAt), formatTime(u.ScheduledAt),
		u.Memory.Stability, u.Memory.Difficulty,
		u.FlashcardID, userID)
	if err != nil {
		s.logger.Error("failed to update flashcard review", "error", err, "flashcard_id", u.FlashcardID)
		return store.NewStoreError("flashcard", "update_review", "update failed", MapError(err))
	}
	return checkRowsAffected(res, store.ErrNotFoundOrUnauthorized)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDueCard(row rowScanner) (*domain.DueCard, error) {
	var (
		card                  domain.DueCard
		rating                sql.NullString
		reviewed, scheduled   sql.NullString
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
	if card.LastReviewed, err = parseNullTime(reviewed); err != nil {
		return nil, err
	}
	if card.LastScheduled, err = parseNullTime(scheduled); err != nil {
		return nil, err
	}
	if stability.Valid {
		card.LastStability = &stability.Float64
	}
	if difficulty.Valid {
		card.LastDifficulty = &difficulty.Float64
	}
	return &card, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
