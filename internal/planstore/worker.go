package planstore

import (
	"context"
	"errors"
	"time"

	"github.com/publicmapping/planwatch/internal/model"

	"go.uber.org/zap"
)

// ErrNotStale is returned when a reaggregation is requested for a plan that
// is not marked as needing one.
var ErrNotStale = errors.New("planstore: plan does not need reaggregation")

// ErrQueueFull is returned when the reaggregation queue cannot accept more work.
var ErrQueueFull = errors.New("planstore: reaggregation queue full")

// Worker processes reaggregation requests one at a time. The real system
// recomputes district statistics; the development service only walks the
// plan through the same state transitions: Needs reaggregation →
// Reaggregating → Ready, falling back to Needs reaggregation when the
// recomputation fails.
type Worker struct {
	store    *Store
	duration time.Duration
	logger   *zap.Logger
	queue    chan model.PlanID

	// failNext forces the next job to fail; tests use it to exercise the
	// failure transition.
	failNext chan struct{}
}

// NewWorker creates a reaggregation worker. duration is how long one
// simulated reaggregation takes.
func NewWorker(store *Store, duration time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if duration <= 0 {
		duration = 3 * time.Second
	}
	return &Worker{
		store:    store,
		duration: duration,
		logger:   logger,
		queue:    make(chan model.PlanID, 64),
		failNext: make(chan struct{}, 1),
	}
}

// Enqueue accepts a reaggregation request for a plan. Only plans currently
// marked as needing reaggregation are accepted; the plan is flipped to
// Reaggregating before Enqueue returns so a poll issued immediately after
// the trigger already observes the new state.
func (w *Worker) Enqueue(id model.PlanID) error {
	plan, err := w.store.Plan(id)
	if err != nil {
		return err
	}
	if plan.State != model.StateNeedsReagg {
		return ErrNotStale
	}

	if err := w.store.SetState(id, model.StateReaggregating); err != nil {
		return err
	}

	select {
	case w.queue <- id:
		return nil
	default:
		// Roll the state back so the client can retry.
		if rbErr := w.store.SetState(id, model.StateNeedsReagg); rbErr != nil {
			w.logger.Warn("rollback after full queue failed",
				zap.Int64("plan", int64(id)), zap.Error(rbErr))
		}
		return ErrQueueFull
	}
}

// FailNext makes the next dequeued job fail its recomputation.
func (w *Worker) FailNext() {
	select {
	case w.failNext <- struct{}{}:
	default:
	}
}

// Run processes queued reaggregations until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-w.queue:
			w.process(ctx, id)
		}
	}
}

func (w *Worker) process(ctx context.Context, id model.PlanID) {
	w.logger.Info("reaggregating plan", zap.Int64("plan", int64(id)))

	select {
	case <-ctx.Done():
		return
	case <-time.After(w.duration):
	}

	fail := false
	select {
	case <-w.failNext:
		fail = true
	default:
	}

	if fail {
		// Failed recomputation leaves the plan stale again.
		if err := w.store.SetState(id, model.StateNeedsReagg); err != nil {
			w.logger.Warn("could not reset failed plan", zap.Int64("plan", int64(id)), zap.Error(err))
		}
		w.logger.Warn("could not reaggregate plan", zap.Int64("plan", int64(id)))
		return
	}

	if err := w.store.SetState(id, model.StateReady); err != nil {
		w.logger.Warn("could not complete plan", zap.Int64("plan", int64(id)), zap.Error(err))
		return
	}
	w.logger.Info("reaggregated plan", zap.Int64("plan", int64(id)))
}
