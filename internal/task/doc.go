// Package task runs follow-on work off the inbound event path. Event
// handlers must return quickly, so anything that touches the store or
// sends frames is wrapped in a Task and queued; a WorkerPool drains the
// queue. A Lane pairs a queue with a single worker to keep one session's
// work ordered while sessions proceed independently.
package task
