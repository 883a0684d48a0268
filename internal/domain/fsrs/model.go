package fsrs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sky-flux/flux"
)

// Model errors
var (
	ErrInvalidRetention  = errors.New("desired retention must be in (0, 1]")
	ErrInvalidMemory     = errors.New("memory state must have positive stability")
	ErrInvalidParameters = flux.ErrInvalidParameters
)

// Grade is the model's four-point recall scale.
type Grade = flux.Rating

// Grades in model order.
const (
	Again = flux.Again
	Hard  = flux.Hard
	Good  = flux.Good
	Easy  = flux.Easy
)

// Parameters are the 21 FSRS-6 weights.
type Parameters = [21]float64

// DefaultParameters are the published FSRS-6 defaults.
var DefaultParameters = flux.DefaultParameters

// MemoryState is the model's per-item state.
type MemoryState struct {
	Stability  float64
	Difficulty float64
}

// ItemState is one candidate outcome: the memory state after answering with
// a given grade and the interval, in fractional days, until the next review.
type ItemState struct {
	Memory   MemoryState
	Interval float64
}

// NextStates holds one candidate per grade.
type NextStates struct {
	Again ItemState
	Hard  ItemState
	Good  ItemState
	Easy  ItemState
}

// For returns the candidate for g.
func (n NextStates) For(g Grade) (ItemState, error) {
	switch g {
	case Again:
		return n.Again, nil
	case Hard:
		return n.Hard, nil
	case Good:
		return n.Good, nil
	case Easy:
		return n.Easy, nil
	}
	return ItemState{}, fmt.Errorf("unknown grade %d", g)
}

// Model evaluates FSRS-6 for a fixed parameter set. A flux scheduler is
// built lazily per retention target and reused; with fuzzing off they hold
// no mutable state, so concurrent callers may share them.
type Model struct {
	params Parameters

	mu         sync.Mutex
	schedulers map[float64]*flux.Scheduler
}

// New builds a Model after validating p.
func New(p Parameters) (*Model, error) {
	if err := flux.ValidateParameters(p); err != nil {
		return nil, err
	}
	return &Model{params: p, schedulers: make(map[float64]*flux.Scheduler)}, nil
}

// Default returns a Model with DefaultParameters.
func Default() *Model {
	m, err := New(DefaultParameters)
	if err != nil {
		// DefaultParameters are within bounds by construction.
		panic(err)
	}
	return m
}

// NextStates computes the candidate states for every grade as of now. A nil
// current state means the item has never been reviewed and is initialised
// from the grade alone. elapsedDays is the whole number of days since the
// last review.
func (m *Model) NextStates(current *MemoryState, desiredRetention float64, elapsedDays uint32, now time.Time) (NextStates, error) {
	if !(desiredRetention > 0 && desiredRetention <= 1) {
		return NextStates{}, fmt.Errorf("%w: got %f", ErrInvalidRetention, desiredRetention)
	}
	if current != nil && !(current.Stability > 0) {
		return NextStates{}, fmt.Errorf("%w: got %f", ErrInvalidMemory, current.Stability)
	}

	sched, err := m.scheduler(desiredRetention)
	if err != nil {
		return NextStates{}, err
	}

	preview := sched.PreviewCard(toCard(current, elapsedDays, now), now)
	state := func(g Grade) ItemState {
		c := preview[g]
		return ItemState{
			Memory:   MemoryState{Stability: *c.Stability, Difficulty: *c.Difficulty},
			Interval: c.Due.Sub(now).Hours() / 24,
		}
	}

	return NextStates{
		Again: state(Again),
		Hard:  state(Hard),
		Good:  state(Good),
		Easy:  state(Easy),
	}, nil
}

func (m *Model) scheduler(retention float64) (*flux.Scheduler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.schedulers[retention]; ok {
		return s, nil
	}
	s, err := flux.NewScheduler(flux.SchedulerConfig{
		Parameters:       m.params,
		DesiredRetention: retention,
		LearningSteps:    []time.Duration{},
		RelearningSteps:  []time.Duration{},
		DisableFuzzing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("build scheduler: %w", err)
	}
	m.schedulers[retention] = s
	return s, nil
}

// toCard places the last review exactly elapsedDays before now so the
// scheduler sees whole days, matching how the engine counts them.
func toCard(current *MemoryState, elapsedDays uint32, now time.Time) flux.Card {
	if current == nil {
		return flux.Card{State: flux.Learning, Due: now}
	}
	s, d := current.Stability, current.Difficulty
	last := now.Add(-time.Duration(elapsedDays) * 24 * time.Hour)
	return flux.Card{
		State:      flux.Review,
		Stability:  &s,
		Difficulty: &d,
		Due:        now,
		LastReview: &last,
	}
}
