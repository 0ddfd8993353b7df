// Package daemon runs the watcher and worker together as a single
// long-lived process guarded by a file lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"sessionscribe/internal/config"
	"sessionscribe/internal/logging"
	"sessionscribe/internal/watcher"
	"sessionscribe/internal/worker"
)

// Daemon couples one scheduler-driven watcher with one worker drain loop.
// The flock enforces the single-consumer assumption: exactly one process may
// mutate a given queue directory tree.
type Daemon struct {
	cfg       *config.Config
	scheduler *watcher.Scheduler
	worker    *worker.Worker
	logger    *slog.Logger
	lockPath  string
	lock      *flock.Flock
}

// New builds a daemon over an already-wired scheduler and worker.
func New(cfg *config.Config, scheduler *watcher.Scheduler, w *worker.Worker, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.QueueDir, "daemon.lock")
	return &Daemon{
		cfg:       cfg,
		scheduler: scheduler,
		worker:    w,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
}

// Run acquires the instance lock and runs watcher and worker until the
// context is cancelled. Both loops share the context; cancelling it shuts
// the daemon down gracefully, finishing nothing mid-write.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance already owns %s", d.lockPath)
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("release daemon lock", logging.Error(err))
		}
	}()

	d.logger.Info("daemon started", logging.String("lock", d.lockPath))

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := d.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs <- fmt.Errorf("watcher: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := d.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs <- fmt.Errorf("worker: %w", err)
		}
	}()

	wg.Wait()
	close(errs)

	d.logger.Info("daemon stopped")
	for err := range errs {
		return err
	}
	return nil
}
