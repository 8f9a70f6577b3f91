package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue for tests and single-binary runs.
type MemoryQueue struct {
	mu     sync.Mutex
	tasks  chan Task
	closed bool
	// PingErr, when set, is returned by Ping.
	PingErr error
}

// NewMemoryQueue creates a queue buffering up to size tasks.
func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{tasks: make(chan Task, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case task, ok := <-q.tasks:
		if !ok {
			return nil, ErrClosed
		}
		return &task, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of buffered tasks.
func (q *MemoryQueue) Len() int {
	return len(q.tasks)
}

func (q *MemoryQueue) Ping(ctx context.Context) error {
	return q.PingErr
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	return nil
}
