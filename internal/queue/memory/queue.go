// Package memory provides the in-process work queue between producers and
// the coordinator.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/newslinker/internal/linker"
)

// ErrClosed is returned once the queue has been closed and drained.
var ErrClosed = linker.ErrQueueClosed

// Queue is an unbounded, ordered, multi-producer queue with a context-aware
// blocking Dequeue. Enqueue never blocks.
type Queue struct {
	mu     sync.Mutex
	items  []linker.ArticleRecord
	notify chan struct{}
	closed bool
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Enqueue appends a record. It fails only after Close.
func (q *Queue) Enqueue(record linker.ArticleRecord) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, record)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	q.mu.Unlock()
	return nil
}

// Dequeue pops the oldest record, blocking until one is available, the
// context ends, or the queue is closed and empty.
func (q *Queue) Dequeue(ctx context.Context) (linker.ArticleRecord, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			rec := q.items[0]
			q.items[0] = linker.ArticleRecord{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return rec, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return linker.ArticleRecord{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return linker.ArticleRecord{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-q.notify:
		}
	}
}

// Len reports the number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting records. Already queued records can still be
// dequeued. Closing twice is safe.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.notify)
}
