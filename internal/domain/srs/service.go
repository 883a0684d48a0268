package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/phrazzld/scry-live/internal/domain"
	"github.com/phrazzld/scry-live/internal/domain/fsrs"
)

// Service computes review outcomes.
type Service interface {
	// ComputeNext rates card and returns the memory state and schedule to
	// persist. desiredRetention is a percentage in [1,100].
	ComputeNext(card *domain.Flashcard, rating domain.Rating, desiredRetention int) (*domain.ReviewUpdate, error)
}

// Option configures the default service.
type Option func(*service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	model *fsrs.Model
	now   func() time.Time
}

var _ Service = (*service)(nil)

// NewService returns a Service backed by the FSRS-6 model.
func NewService(opts ...Option) Service {
	s := &service{model: fsrs.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) ComputeNext(card *domain.Flashcard, rating domain.Rating, desiredRetention int) (*domain.ReviewUpdate, error) {
	grade, err := gradeFor(rating)
	if err != nil {
		return nil, err
	}
	if desiredRetention < domain.MinSettingValue || desiredRetention > domain.MaxSettingValue {
		return nil, fmt.Errorf("%w: desired_retention=%d", domain.ErrInvalidSetting, desiredRetention)
	}

	now := s.now().UTC()

	mem, err := card.Memory()
	if err != nil {
		return nil, err
	}

	var (
		current *fsrs.MemoryState
		elapsed uint32
	)
	if mem != nil {
		current = &fsrs.MemoryState{Stability: mem.Stability, Difficulty: mem.Difficulty}
		elapsed = ElapsedDays(*card.LastReviewed, now)
	}

	states, err := s.model.NextStates(current, float64(desiredRetention)/100, elapsed, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelState, err)
	}
	next, err := states.For(grade)
	if err != nil {
		return nil, err
	}

	return &domain.ReviewUpdate{
		FlashcardID: card.ID,
		Rating:      rating,
		Memory: domain.MemoryState{
			Stability:  next.Memory.Stability,
			Difficulty: next.Memory.Difficulty,
		},
		ReviewedAt:  now,
		ScheduledAt: now.Add(IntervalDuration(next.Interval)),
	}, nil
}

// ElapsedDays is the number of whole days between last and now, never negative.
func ElapsedDays(last, now time.Time) uint32 {
	d := now.Sub(last)
	if d <= 0 {
		return 0
	}
	return uint32(d / (24 * time.Hour))
}

// IntervalDuration converts a fractional-day interval to whole minutes,
// truncating any remainder.
func IntervalDuration(days float64) time.Duration {
	minutes := math.Trunc(days * 24 * 60)
	if minutes <= 0 || math.IsNaN(minutes) {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}

func gradeFor(r domain.Rating) (fsrs.Grade, error) {
	switch r {
	case domain.RatingEasy:
		return fsrs.Easy, nil
	case domain.RatingGood:
		return fsrs.Good, nil
	case domain.RatingDifficult:
		return fsrs.Hard, nil
	case domain.RatingAgain:
		return fsrs.Again, nil
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrInvalidRating, string(r))
}
