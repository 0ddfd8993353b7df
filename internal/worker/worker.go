// Package worker drains the job queue through the pipeline one job at a
// time, owning the state machine, cooperative cancellation, and failure
// isolation for each job.
package worker

import (
	"context"
	"log/slog"
	"time"

	"sessionscribe/internal/config"
	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/logging"
	"sessionscribe/internal/metrics"
	"sessionscribe/internal/pipeline"
	"sessionscribe/internal/presets"
)

// Worker is the single queue consumer. Exactly one worker runs per queue
// directory; jobs execute strictly sequentially so local CPU and external
// API contention stay bounded.
type Worker struct {
	cfg     *config.Config
	store   *jobstore.Store
	pipe    pipeline.Pipeline
	metrics *metrics.Store
	logger  *slog.Logger
}

// New builds a worker over the given store and pipeline.
func New(cfg *config.Config, store *jobstore.Store, pipe pipeline.Pipeline, metricsStore *metrics.Store, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{
		cfg:     cfg,
		store:   store,
		pipe:    pipe,
		metrics: metricsStore,
		logger:  logging.NewComponentLogger(logger, "worker"),
	}
}

// Run polls for pending jobs until the context is cancelled, draining
// everything available on each wake-up.
func (w *Worker) Run(ctx context.Context) error {
	interval := time.Duration(w.cfg.Worker.PollInterval) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}

	for {
		if _, err := w.Drain(ctx, DrainOptions{}); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("drain pass failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// DrainOptions bound a single drain pass.
type DrainOptions struct {
	// Limit caps how many jobs this pass processes; zero means all pending.
	Limit int
	// DryRun reports what would run without touching any job.
	DryRun bool
	// Force makes collaborators recompute cached stage outputs.
	Force bool
	// Overrides layers drain-level stage settings over each job's preset.
	Overrides presets.Overrides
}

// DrainResult counts the outcomes of one drain pass.
type DrainResult struct {
	Processed int
	Succeeded int
	Failed    int
	Cancelled int
	Skipped   int
}

// Drain processes pending jobs in FIFO order until the queue is empty, the
// limit is reached, or the context is cancelled. Job failures are isolated;
// only infrastructure errors (queue unreadable) abort the pass.
func (w *Worker) Drain(ctx context.Context, opts DrainOptions) (*DrainResult, error) {
	result := &DrainResult{}

	pending, err := w.store.Pending()
	if err != nil {
		return result, err
	}
	if opts.Limit > 0 && len(pending) > opts.Limit {
		pending = pending[:opts.Limit]
	}

	for _, job := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if opts.DryRun {
			w.logger.Info("would process",
				logging.String(logging.FieldJobID, job.JobID),
				logging.String("raw_path", job.RawPath))
			result.Skipped++
			continue
		}

		status := w.ProcessJob(ctx, job.JobID, opts)
		result.Processed++
		switch status {
		case jobstore.StatusDone:
			result.Succeeded++
		case jobstore.StatusCancelled:
			result.Cancelled++
		default:
			result.Failed++
		}
	}
	return result, nil
}

// ProcessOne drains exactly one pending job, used by the watcher's auto-run
// trigger.
func (w *Worker) ProcessOne(ctx context.Context, jobID string) error {
	job, err := w.store.Load(jobID)
	if err != nil {
		return err
	}
	if job.Status != jobstore.StatusPending {
		return nil
	}
	w.ProcessJob(ctx, jobID, DrainOptions{})
	return nil
}
