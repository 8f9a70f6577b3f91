// Package queue carries job dispatches from the API process to workers.
package queue

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/domain"
)

// ErrClosed is returned by Dequeue after the queue has been closed.
var ErrClosed = eris.New("queue closed")

// Task is the message placed on the queue for one job run.
type Task struct {
	JobID      uint           `json:"job_id"`
	Type       domain.JobType `json:"type"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// Queue is a FIFO work queue shared between the API and worker processes.
type Queue interface {
	// Enqueue publishes a task for asynchronous execution.
	Enqueue(ctx context.Context, task Task) error
	// Dequeue blocks up to timeout for the next task; it returns (nil, nil) on timeout.
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	// Ping checks connectivity to the backing broker.
	Ping(ctx context.Context) error
	Close() error
}
