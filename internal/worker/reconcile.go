// Package worker runs scheduled maintenance jobs against the graph.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RecountFunc recomputes tag usage counts and reports how many were corrected.
type RecountFunc func(ctx context.Context) (int, error)

// RecountObserver records the outcome of each run. *metrics.Metrics implements it.
type RecountObserver interface {
	ObserveRecount(corrected int, err error)
}

const defaultRunTimeout = 10 * time.Minute

// Reconciler periodically repairs usage counts that drifted from the
// assignment edges.
type Reconciler struct {
	cron     *cron.Cron
	schedule string
	recount  RecountFunc
	observer RecountObserver
	logger   *slog.Logger
	timeout  time.Duration

	mu      sync.Mutex
	running bool
	entry   cron.EntryID
}

// NewReconciler creates a reconciler for schedule, a standard five-field cron
// expression or descriptor such as "@every 6h". observer may be nil.
func NewReconciler(schedule string, recount RecountFunc, observer RecountObserver, logger *slog.Logger) (*Reconciler, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "reconciler")

	r := &Reconciler{
		schedule: schedule,
		recount:  recount,
		observer: observer,
		logger:   logger,
		timeout:  defaultRunTimeout,
	}
	r.cron = cron.New(
		cron.WithLogger(cronLogger{logger}),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)

	id, err := r.cron.AddFunc(schedule, func() { _, _ = r.RunOnce(context.Background()) })
	if err != nil {
		return nil, fmt.Errorf("invalid recount schedule %q: %w", schedule, err)
	}
	r.entry = id
	return r, nil
}

// Start begins scheduling. Calling Start twice is a no-op.
func (r *Reconciler) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.cron.Start()
	r.running = true
	r.logger.Info("reconciler started", "schedule", r.schedule, "next_run", r.NextRun())
}

// Stop halts scheduling and waits for a running job or ctx, whichever ends first.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	r.running = false

	select {
	case <-r.cron.Stop().Done():
		r.logger.Info("reconciler stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("reconciler stop timed out")
		return ctx.Err()
	}
}

// Shutdown implements do.ShutdownerWithContextAndError.
func (r *Reconciler) Shutdown(ctx context.Context) error {
	return r.Stop(ctx)
}

// NextRun returns when the job fires next. Zero before Start.
func (r *Reconciler) NextRun() time.Time {
	return r.cron.Entry(r.entry).Next
}

// RunOnce performs a single recount immediately.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	corrected, err := r.recount(ctx)
	if r.observer != nil {
		r.observer.ObserveRecount(corrected, err)
	}
	if err != nil {
		r.logger.Error("usage recount failed", "error", err, "duration", time.Since(start))
		return 0, err
	}

	r.logger.Debug("usage recount completed", "corrected", corrected, "duration", time.Since(start))
	return corrected, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
