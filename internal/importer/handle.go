package importer

import (
	"context"
	"sync"
	"time"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Snapshot is a point-in-time view of a job.
type Snapshot struct {
	ID         string     `json:"id"`
	UserID     uint       `json:"user_id"`
	Status     Status     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Progress   Event      `json:"progress"`
	Dropped    int        `json:"dropped_events"`
	Result     *Result    `json:"result,omitempty"`
}

// JobHandle controls one running import.
type JobHandle struct {
	ID        string
	UserID    uint
	StartedAt time.Time

	reporter *reporter
	cancel   context.CancelFunc
	done     chan struct{}

	mu         sync.RWMutex
	result     *Result
	err        error
	finishedAt time.Time
}

func newJobHandle(id string, userID uint, started time.Time, buffer int, cancel context.CancelFunc) *JobHandle {
	return &JobHandle{
		ID:        id,
		UserID:    userID,
		StartedAt: started,
		reporter:  newReporter(buffer),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Events streams progress. The channel is closed after the complete event.
func (h *JobHandle) Events() <-chan Event {
	return h.reporter.ch
}

// Cancel asks the job to stop at its next suspension point.
func (h *JobHandle) Cancel() {
	h.cancel()
}

func (h *JobHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job ends or ctx is done. A cancelled job returns its
// partial result together with context.Canceled.
func (h *JobHandle) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result, h.err
}

func (h *JobHandle) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        h.ID,
		UserID:    h.UserID,
		Status:    StatusRunning,
		StartedAt: h.StartedAt,
		Progress:  h.reporter.lastEvent(),
		Dropped:   h.reporter.droppedCount(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.result != nil {
		res := *h.result
		snap.Result = &res
		finished := h.finishedAt
		snap.FinishedAt = &finished
		snap.Status = StatusCompleted
		if res.Cancelled {
			snap.Status = StatusCancelled
		}
	}
	return snap
}

func (h *JobHandle) finish(result *Result, err error, at time.Time) {
	h.mu.Lock()
	h.result = result
	h.err = err
	h.finishedAt = at
	h.mu.Unlock()
	close(h.done)
}
