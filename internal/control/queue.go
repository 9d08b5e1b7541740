package control

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roscosynth/rosco/internal/effects"
	"github.com/roscosynth/rosco/internal/state"
)

const DefaultQueueSize = 256

var (
	ErrQueueFull   = errors.New("control queue full")
	ErrQueueClosed = errors.New("control queue closed")
)

// Queue is a bounded, non-blocking channel of updates.
type Queue struct {
	mu      sync.RWMutex
	ch      chan Update
	closed  bool
	dropped atomic.Uint64
	logger  *slog.Logger
}

// NewQueue creates a queue holding up to size pending updates. A size of
// zero or less uses DefaultQueueSize. A nil logger uses slog.Default.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{ch: make(chan Update, size), logger: logger}
}

// TrySend enqueues u without blocking. A full queue drops u and returns
// ErrQueueFull.
func (q *Queue) TrySend(u Update) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- u:
		return nil
	default:
		n := q.dropped.Add(1)
		q.logger.Warn("control update dropped", "update", u, "dropped", n)
		return ErrQueueFull
	}
}

// Close stops accepting updates. Pending updates are still delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Len is the number of pending updates.
func (q *Queue) Len() int { return len(q.ch) }

// Cap is the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Dropped counts updates rejected because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Worker applies queued updates to the shared state.
type Worker struct {
	queue   *Queue
	state   *state.AudioState
	eq      *effects.EQ5Band
	logger  *slog.Logger
	applied atomic.Uint64
}

func NewWorker(q *Queue, s *state.AudioState, eq *effects.EQ5Band, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{queue: q, state: s, eq: eq, logger: logger}
}

// Run drains the queue until ctx is cancelled or the queue is closed and
// empty. It returns ctx.Err() on cancellation and nil on close.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Debug("control worker started")
	defer w.logger.Debug("control worker stopped", "applied", w.applied.Load())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-w.queue.ch:
			if !ok {
				return nil
			}
			if err := Apply(u, w.state, w.eq); err != nil {
				w.logger.Warn("control update rejected", "update", u, "err", err)
				continue
			}
			w.applied.Add(1)
		}
	}
}

// Applied counts updates successfully stored.
func (w *Worker) Applied() uint64 { return w.applied.Load() }
