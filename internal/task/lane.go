package task

import (
	"context"
	"log/slog"
)

// DefaultLaneCapacity bounds the backlog of one lane.
const DefaultLaneCapacity = 64

// Lane is a task queue drained by a single worker, so tasks submitted to one
// lane run one at a time in submission order. Each live session owns a lane;
// lanes never block one another.
type Lane struct {
	queue *TaskQueue
	pool  *WorkerPool
}

var _ Submitter = (*Lane)(nil)

// NewLane creates and starts a lane.
func NewLane(capacity int, logger *slog.Logger) *Lane {
	if capacity <= 0 {
		capacity = DefaultLaneCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	queue := NewTaskQueue(capacity, logger)
	pool := NewWorkerPool(queue, DefaultWorkerPoolConfig(), logger)
	pool.Start()
	return &Lane{queue: queue, pool: pool}
}

// SetErrorHandler forwards to the lane's worker pool.
func (l *Lane) SetErrorHandler(handler func(task Task, err error)) {
	l.pool.SetErrorHandler(handler)
}

// Submit enqueues fn. It fails with ErrQueueFull or ErrQueueClosed.
func (l *Lane) Submit(taskType string, fn func(ctx context.Context) error) error {
	return l.queue.Enqueue(NewFuncTask(taskType, fn))
}

// Close stops accepting tasks and lets queued ones finish. If ctx ends
// first the running task's context is cancelled and the rest are dropped.
func (l *Lane) Close(ctx context.Context) {
	l.queue.Close()

	done := make(chan struct{})
	go func() {
		l.pool.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.pool.cancel()
	case <-ctx.Done():
		l.pool.Stop()
	}
}

// Inline runs every submitted function immediately on the caller's
// goroutine. It is meant for tests and tools that need deterministic order.
type Inline struct{}

var _ Submitter = Inline{}

// Submit runs fn and returns its error.
func (Inline) Submit(_ string, fn func(ctx context.Context) error) error {
	return fn(context.Background())
}
