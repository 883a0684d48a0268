package task

import (
	"context"

	"github.com/google/uuid"
)

// Task type constants
const (
	// TypeReviewCommand is a voice or gesture command applied to a review.
	TypeReviewCommand = "review_command"

	// TypeReviewRequeue reloads a review queue after a settings change.
	TypeReviewRequeue = "review_requeue"

	// TypeReviewInit loads and announces the first queue of a session.
	TypeReviewInit = "review_init"

	// TypeReviewSettings applies and persists a settings change.
	TypeReviewSettings = "review_settings"
)

// Task represents a unit of follow-on work scheduled off the inbound event
// path so a slow store or socket cannot stall it.
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// Submitter schedules functions as tasks.
type Submitter interface {
	Submit(taskType string, fn func(ctx context.Context) error) error
}

// FuncTask adapts a function to the Task interface.
type FuncTask struct {
	id       uuid.UUID
	taskType string
	fn       func(ctx context.Context) error
}

var _ Task = (*FuncTask)(nil)

// NewFuncTask wraps fn in a task with a fresh ID.
func NewFuncTask(taskType string, fn func(ctx context.Context) error) *FuncTask {
	return &FuncTask{id: uuid.New(), taskType: taskType, fn: fn}
}

func (t *FuncTask) ID() uuid.UUID { return t.id }

func (t *FuncTask) Type() string { return t.taskType }

func (t *FuncTask) Execute(ctx context.Context) error { return t.fn(ctx) }
