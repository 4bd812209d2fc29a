// Package pipeline implements the buffered delivery path from record
// handler to the single outbound writer: a bounded multi-producer queue,
// the per-batch handler that feeds it, and the forwarder that drains it.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/crimson-sun/logship/internal/model"
)

// DefaultQueueCapacity bounds the delivery queue when no explicit
// capacity is configured.
const DefaultQueueCapacity = 1024

// ErrQueueClosed is returned by Enqueue once the producer side has been
// shut down. A batch that hits it cannot make progress and fails as a
// whole.
var ErrQueueClosed = errors.New("delivery queue closed")

// Queue is a bounded FIFO of canonical events: many producers (one per
// batch invocation), exactly one consumer (the forwarder). A full queue
// blocks producers rather than dropping events; that blocking is the
// system's only backpressure mechanism.
type Queue struct {
	ch chan model.CanonicalEvent

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewQueue creates a queue holding up to capacity events. Non-positive
// capacities fall back to DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{ch: make(chan model.CanonicalEvent, capacity)}
}

// Enqueue appends one event, blocking while the queue is full. It returns
// ErrQueueClosed after Close, or the context's error if ctx is cancelled
// while waiting for space.
func (q *Queue) Enqueue(ctx context.Context, ev model.CanonicalEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the producer side. It waits for in-flight Enqueue calls to
// finish, then closes the channel so the consumer drains whatever is
// queued and exits. Safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
}

// Events exposes the consumer side of the queue. Only the forwarder may
// range over it.
func (q *Queue) Events() <-chan model.CanonicalEvent {
	return q.ch
}
