package review

import (
	"sync"

	"github.com/phrazzld/scry-live/internal/domain"
)

// DefaultQueueCapacity is the number of cards a queue holds.
const DefaultQueueCapacity = 100

// Queue is a bounded FIFO of due cards. Pushing onto a full queue displaces
// the oldest card.
type Queue struct {
	mu   sync.Mutex
	buf  []domain.DueCard
	head int
	size int
}

// NewQueue returns an empty queue. A non-positive capacity selects
// DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{buf: make([]domain.DueCard, capacity)}
}

// Push appends card and reports whether the oldest card had to be dropped.
func (q *Queue) Push(card domain.DueCard) (displaced bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.push(card)
}

func (q *Queue) push(card domain.DueCard) bool {
	if q.size == len(q.buf) {
		q.buf[q.head] = card
		q.head = (q.head + 1) % len(q.buf)
		return true
	}
	q.buf[(q.head+q.size)%len(q.buf)] = card
	q.size++
	return false
}

// Pop removes and returns the oldest card.
func (q *Queue) Pop() (domain.DueCard, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return domain.DueCard{}, false
	}
	card := q.buf[q.head]
	q.buf[q.head] = domain.DueCard{}
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return card, true
}

// Replace empties the queue and pushes cards in order. It returns how many
// cards were displaced because cards exceeded the capacity.
func (q *Queue) Replace(cards []domain.DueCard) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.buf)
	q.head, q.size = 0, 0
	displaced := 0
	for _, c := range cards {
		if q.push(c) {
			displaced++
		}
	}
	return displaced
}

// Len returns the number of queued cards.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}
