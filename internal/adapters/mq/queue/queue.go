// Package queue is the bounded hand-off between callers asking for trial
// details and the fetch workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/pkg/metrics"
)

const defaultQueueCapacity = 1000

// Job is the payload type flowing through the queue.
type Job = model.TrialJob

// InMemoryQueue is a bounded job queue over a buffered channel. Producers
// block in Put while it is full; workers range over Dequeue.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	metrics  *metrics.Manager

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		metrics:  metrics.Global(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	q.metrics.UpdateQueue(0, q.capacity)
	return q
}

// Put adds a job, waiting for room until ctx is done. It returns ErrClosed
// once Close has been called.
func (q *InMemoryQueue) Put(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.metrics.RecordQueueEnqueueError()
		return ErrClosed
	}
	select {
	case q.jobs <- j:
		q.metrics.UpdateQueue(len(q.jobs), q.capacity)
		return nil
	case <-ctx.Done():
		q.metrics.RecordQueueEnqueueError()
		return ctx.Err()
	}
}

// Dequeue returns the channel workers read from. Close closes it.
func (q *InMemoryQueue) Dequeue() <-chan Job {
	return q.jobs
}

func (q *InMemoryQueue) Len() int {
	size := len(q.jobs)
	q.metrics.UpdateQueue(size, q.capacity)
	return size
}

// Close waits for in-progress Puts to finish before closing the channel.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}
