package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mindmail/internal/clock"
	"mindmail/internal/logger"
	"mindmail/internal/models"
)

// Reconciler is satisfied by *Scheduler.
type Reconciler interface {
	Reconcile(ctx context.Context, now time.Time) ([]models.Letter, error)
}

// Worker reconciles once when it starts and then on every tick, standing in
// for the launch and foreground passes of an interactive app.
type Worker struct {
	r        Reconciler
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

// NewWorker creates a Worker. A non-positive interval means one minute.
func NewWorker(r Reconciler, interval time.Duration, clk clock.Clock, log *zap.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Worker{r: r, interval: interval, clock: clk, logger: logger.OrNop(log)}
}

// Run blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("reconcile worker starting", zap.Duration("interval", w.interval))
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reconcile worker stopping")
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if _, err := w.r.Reconcile(ctx, w.clock.Now()); err != nil {
		w.logger.Error("reconcile failed", zap.Error(err))
	}
}
