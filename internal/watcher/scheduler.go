package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"sessionscribe/internal/config"
	"sessionscribe/internal/logging"
)

// Watch modes.
const (
	ModeOnce     = "once"
	ModeInterval = "interval"
	ModeEvent    = "event"
)

// Scheduler drives a Watcher under one of three strategies: a single scan, a
// fixed-interval ticker, or a filesystem-event loop. Every strategy calls
// ScanOnce, so a mode switch never changes what gets queued.
type Scheduler struct {
	watcher  *Watcher
	mode     string
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler builds a scheduler for the configured watch mode.
func NewScheduler(cfg *config.Config, w *Watcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		watcher:  w,
		mode:     cfg.Watcher.Mode,
		interval: time.Duration(cfg.Watcher.PollInterval) * time.Second,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Run executes the configured strategy until the context is cancelled. In
// once mode it returns after the first scan.
func (s *Scheduler) Run(ctx context.Context) error {
	switch s.mode {
	case ModeOnce:
		_, err := s.watcher.ScanOnce()
		return err
	case ModeInterval:
		return s.runInterval(ctx)
	case ModeEvent:
		return s.runEvent(ctx)
	default:
		return fmt.Errorf("unknown watch mode %q", s.mode)
	}
}

func (s *Scheduler) runInterval(ctx context.Context) error {
	if _, err := s.watcher.ScanOnce(); err != nil {
		s.logger.Error("scan failed", logging.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.watcher.ScanOnce(); err != nil {
				s.logger.Error("scan failed", logging.Error(err))
			}
		}
	}
}

// runEvent watches the raw directories with fsnotify and scans when files
// land. Events are debounced briefly so a recording still being written is
// picked up once, after its final rename or close-adjacent write.
func (s *Scheduler) runEvent(ctx context.Context) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer notifier.Close()

	for _, dir := range s.watcher.cfg.Paths.RawDirs {
		if err := notifier.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	// Initial scan covers files that landed before the watch started.
	if _, err := s.watcher.ScanOnce(); err != nil {
		s.logger.Error("scan failed", logging.Error(err))
	}

	const debounce = 2 * time.Second
	var pending *time.Timer
	var pendingC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(debounce)
				pendingC = pending.C
			} else {
				pending.Reset(debounce)
			}
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("fsnotify error", logging.Error(err))
		case <-pendingC:
			pending = nil
			pendingC = nil
			if _, err := s.watcher.ScanOnce(); err != nil {
				s.logger.Error("scan failed", logging.Error(err))
			}
		}
	}
}
