package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/platform/logger"
	"github.com/phrazzld/scry-live/internal/platform/migrations"
	"github.com/phrazzld/scry-live/internal/store"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "scry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := migrations.New(migrations.DriverSQLite, db, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))
	return db
}

func newDeck(t *testing.T, s store.Stores, name, userID string) domain.Deck {
	t.Helper()
	d := domain.Deck{Name: name, UserID: userID}
	require.NoError(t, s.Decks.Create(context.Background(), &d))
	return d
}

func newCard(t *testing.T, s store.Stores, deckID int64, front string, scheduled *time.Time) domain.Flashcard {
	t.Helper()
	c := domain.Flashcard{DeckID: deckID, Front: front, Back: front + " back"}
	if scheduled != nil {
		reviewed := scheduled.Add(-24 * time.Hour)
		stability, difficulty := 3.2, 5.1
		good := domain.RatingGood
		c.LastRating = &good
		c.LastReviewed = &reviewed
		c.LastScheduled = scheduled
		c.LastStability = &stability
		c.LastDifficulty = &difficulty
	}
	require.NoError(t, s.Flashcards.Create(context.Background(), &c))
	return c
}

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func fronts(cards []domain.DueCard) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Front)
	}
	return out
}

func TestDeckStore(t *testing.T) {
	s := NewStores(newTestDB(t), logger.Discard())
	ctx := context.Background()

	first := newDeck(t, s, "Spanish", "alice")
	second := newDeck(t, s, "Chemistry", "alice")
	newDeck(t, s, "History", "bob")

	decks, err := s.Decks.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.Deck{first, second}, decks)

	decks, err = s.Decks.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, decks)
	assert.NotNil(t, decks)

	err = s.Decks.Create(ctx, &domain.Deck{Name: " ", UserID: "alice"})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestFlashcardCreate(t *testing.T) {
	s := NewStores(newTestDB(t), logger.Discard())
	ctx := context.Background()
	deck := newDeck(t, s, "Spanish", "alice")

	t.Run("invalid card", func(t *testing.T) {
		stability := 1.0
		err := s.Flashcards.Create(ctx, &domain.Flashcard{DeckID: deck.ID, Front: "hola", LastStability: &stability})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("missing deck", func(t *testing.T) {
		err := s.Flashcards.Create(ctx, &domain.Flashcard{DeckID: deck.ID + 100, Front: "hola"})
		assert.ErrorIs(t, err, store.ErrDeckNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		card := newCard(t, s, deck.ID, "perro", at(-time.Hour))
		got, err := s.Flashcards.GetForUser(ctx, card.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, card.Front, got.Front)
		assert.Equal(t, card.Back, got.Back)
		assert.Equal(t, *card.LastRating, *got.LastRating)
		assert.True(t, card.LastScheduled.Equal(*got.LastScheduled))
		assert.True(t, card.LastReviewed.Equal(*got.LastReviewed))
		assert.InDelta(t, *card.LastStability, *got.LastStability, 1e-9)
		assert.InDelta(t, *card.LastDifficulty, *got.LastDifficulty, 1e-9)
	})
}

func TestGetForUserHidesOtherOwners(t *testing.T) {
	s := NewStores(newTestDB(t), logger.Discard())
	deck := newDeck(t, s, "Spanish", "alice")
	card := newCard(t, s, deck.ID, "gato", nil)

	_, err := s.Flashcards.GetForUser(context.Background(), card.ID, "bob")
	assert.ErrorIs(t, err, store.ErrNotFoundOrUnauthorized)

	_, err = s.Flashcards.GetForUser(context.Background(), card.ID+1, "alice")
	assert.ErrorIs(t, err, store.ErrNotFoundOrUnauthorized)
}

func TestListDue(t *testing.T) {
	s := NewStores(newTestDB(t), logger.Discard())
	ctx := context.Background()

	spanish := newDeck(t, s, "Spanish", "alice")
	chem := newDeck(t, s, "Chemistry", "alice")
	other := newDeck(t, s, "Mine", "bob")

	newCard(t, s, spanish.ID, "yesterday", at(-24*time.Hour))
	newCard(t, s, spanish.ID, "never", nil)
	newCard(t, s, chem.ID, "two days ago", at(-48*time.Hour))
	newCard(t, s, chem.ID, "tomorrow", at(24*time.Hour))
	newCard(t, s, spanish.ID, "exactly now", at(0))
	newCard(t, s, other.ID, "bob's card", nil)
	newCard(t, s, chem.ID, "never again", nil)

	cards, err := s.Flashcards.ListDue(ctx, "alice", now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"two days ago", "yesterday", "exactly now", "never", "never again"}, fronts(cards))
	assert.Equal(t, "Chemistry", cards[0].DeckName)
	assert.Equal(t, "Spanish", cards[1].DeckName)

	cards, err = s.Flashcards.ListDue(ctx, "alice", now, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"two days ago", "yesterday"}, fronts(cards))

	cards, err = s.Flashcards.ListDue(ctx, "alice", now, 0)
	require.NoError(t, err)
	assert.Empty(t, cards)

	cards, err = s.Flashcards.ListDue(ctx, "carol", now, 10)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestUpdateReview(t *testing.T) {
	s := NewStores(newTestDB(t), logger.Discard())
	ctx := context.Background()
	deck := newDeck(t, s, "Spanish", "alice")
	card := newCard(t, s, deck.ID, "casa", nil)

	update := domain.ReviewUpdate{
		FlashcardID: card.ID,
		Rating:      domain.RatingAgain,
		Memory:      domain.MemoryState{Stability: 0.4, Difficulty: 6.2},
		ReviewedAt:  now,
		ScheduledAt: now.Add(10 * time.Minute),
	}

	t.Run("other owner", func(t *testing.T) {
		err := s.Flashcards.UpdateReview(ctx, "bob", update)
		assert.ErrorIs(t, err, store.ErrNotFoundOrUnauthorized)
	})

	t.Run("missing card", func(t *testing.T) {
		missing := update
		missing.FlashcardID = card.ID + 50
		err := s.Flashcards.UpdateReview(ctx, "alice", missing)
		assert.ErrorIs(t, err, store.ErrNotFoundOrUnauthorized)
	})

	t.Run("invalid rating", func(t *testing.T) {
		bad := update
		bad.Rating = "perfect"
		err := s.Flashcards.UpdateReview(ctx, "alice", bad)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("owner", func(t *testing.T) {
		require.NoError(t, s.Flashcards.UpdateReview(ctx, "alice", update))

		got, err := s.Flashcards.GetForUser(ctx, card.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.RatingAgain, *got.LastRating)
		assert.True(t, now.Equal(*got.LastReviewed))
		assert.True(t, now.Add(10*time.Minute).Equal(*got.LastScheduled))
		assert.InDelta(t, 0.4, *got.LastStability, 1e-9)
		assert.InDelta(t, 6.2, *got.LastDifficulty, 1e-9)

		due, err := s.Flashcards.ListDue(ctx, "alice", now, 10)
		require.NoError(t, err)
		assert.Empty(t, due, "a card scheduled in the future is not due")
	})
}

func TestSettingsStore(t *testing.T) {
	s := NewStores(newTestDB(t), logger.Discard())
	ctx := context.Background()

	_, err := s.Settings.Get(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrSettingsNotFound)

	require.NoError(t, s.Settings.Upsert(ctx, "alice", domain.Settings{MaxCardsPerSession: 20, DesiredRetention: 75}))
	require.NoError(t, s.Settings.Upsert(ctx, "alice", domain.Settings{MaxCardsPerSession: 5, DesiredRetention: 90}))

	got, err := s.Settings.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.Settings{MaxCardsPerSession: 5, DesiredRetention: 90}, got)

	err = s.Settings.Upsert(ctx, "alice", domain.Settings{MaxCardsPerSession: 0, DesiredRetention: 90})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrInvalidSetting)
}

func TestMapError(t *testing.T) {
	assert.Nil(t, MapError(nil))
	assert.ErrorIs(t, MapError(sql.ErrNoRows), store.ErrNotFound)

	plain := errors.New("disk full")
	assert.Equal(t, plain, MapError(plain))
}
