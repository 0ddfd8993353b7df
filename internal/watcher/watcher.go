package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sessionscribe/internal/config"
	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/logging"
)

// Enricher fills optional job fields (media probe, runtime estimates) before
// the job is enqueued. Enrichment failures must be handled inside the
// callback; the watcher queues the job regardless.
type Enricher func(job *jobstore.Job)

// Trigger is invoked after a scan that queued at least one new job, once per
// queued job up to the configured batch limit. A non-nil error is recorded on
// the job's error field and never stops the scan loop.
type Trigger func(job *jobstore.Job) error

// ScanResult summarizes a single pass over the raw directories.
type ScanResult struct {
	Found      int
	Queued     int
	Skipped    int
	QueuedJobs []*jobstore.Job
}

// Watcher discovers new recordings in the configured raw directories and
// queues one job per unseen file. All watch modes funnel through ScanOnce so
// dedup and enqueue behavior is identical regardless of how a scan is
// triggered.
type Watcher struct {
	cfg        *config.Config
	store      *jobstore.Store
	state      *State
	statePath  string
	extensions map[string]struct{}
	logger     *slog.Logger

	enrich  Enricher
	trigger Trigger
	dryRun  bool
}

// Option configures optional watcher behavior.
type Option func(*Watcher)

// WithEnricher sets a pre-enqueue job enrichment hook.
func WithEnricher(enrich Enricher) Option {
	return func(w *Watcher) { w.enrich = enrich }
}

// WithTrigger sets the auto-run callback fired for newly queued jobs.
func WithTrigger(trigger Trigger) Option {
	return func(w *Watcher) { w.trigger = trigger }
}

// WithDryRun reports what would be queued without writing jobs or state.
func WithDryRun(dryRun bool) Option {
	return func(w *Watcher) { w.dryRun = dryRun }
}

// New builds a watcher over the configured raw directories, loading persisted
// dedup state from disk.
func New(cfg *config.Config, store *jobstore.Store, logger *slog.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	extensions := make(map[string]struct{}, len(cfg.Watcher.Extensions))
	for _, ext := range cfg.Watcher.Extensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}
	w := &Watcher{
		cfg:        cfg,
		store:      store,
		state:      LoadState(cfg.WatcherStatePath()),
		statePath:  cfg.WatcherStatePath(),
		extensions: extensions,
		logger:     logging.NewComponentLogger(logger, "watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State exposes the current dedup state for status reporting.
func (w *Watcher) State() *State { return w.state }

// ScanOnce walks each raw directory non-recursively, queues unseen video
// files, and persists the updated dedup state. A file is queued first and
// marked seen after; a crash between the two re-queues that one file on the
// next scan, which downstream dedup-by-path handling tolerates.
func (w *Watcher) ScanOnce() (*ScanResult, error) {
	result := &ScanResult{}
	for _, dir := range w.cfg.Paths.RawDirs {
		if err := w.scanDir(dir, result); err != nil {
			return result, err
		}
	}

	w.state.TouchScanTime()
	if !w.dryRun {
		if err := w.state.Save(w.statePath); err != nil {
			return result, fmt.Errorf("persist watcher state: %w", err)
		}
	}

	w.logger.Info("scan complete",
		logging.Int("found", result.Found),
		logging.Int("queued", result.Queued),
		logging.Int("skipped", result.Skipped))

	if result.Queued > 0 && w.trigger != nil && !w.dryRun {
		w.runTrigger(result.QueuedJobs)
	}
	return result, nil
}

func (w *Watcher) scanDir(dir string, result *ScanResult) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			w.logger.Warn("raw directory missing", logging.String("dir", dir))
			return nil
		}
		return fmt.Errorf("read raw directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !w.isVideoFile(entry.Name()) {
			continue
		}
		result.Found++

		path := filepath.Join(dir, entry.Name())
		key, err := DedupKey(path)
		if err != nil {
			// File vanished or is unreadable mid-scan; next scan retries.
			w.logger.Warn("skipping unreadable file",
				logging.String("path", path), logging.Error(err))
			result.Skipped++
			continue
		}
		if w.state.HasSeen(key) {
			result.Skipped++
			continue
		}

		if w.dryRun {
			w.logger.Info("would queue", logging.String("path", path))
			result.Queued++
			continue
		}

		job, err := w.queueFile(path, dir)
		if err != nil {
			w.logger.Error("enqueue failed",
				logging.String("path", path), logging.Error(err))
			result.Skipped++
			continue
		}
		w.state.MarkSeen(key)

		result.Queued++
		result.QueuedJobs = append(result.QueuedJobs, job)
		w.logger.Info("queued job",
			logging.String(logging.FieldJobID, job.JobID),
			logging.String("path", path),
			logging.String("suggested_game", job.SuggestedGame))
	}
	return nil
}

func (w *Watcher) queueFile(path, dir string) (*jobstore.Job, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		resolved = path
	}
	job := &jobstore.Job{
		CreatedAt:     time.Now().UTC(),
		Status:        jobstore.StatusPending,
		RawPath:       resolved,
		RawDir:        dir,
		SuggestedGame: GuessGame(filepath.Base(path)),
		Preset:        w.cfg.Worker.Preset,
	}
	if w.enrich != nil {
		w.enrich(job)
	}
	if err := w.store.Enqueue(job); err != nil {
		return nil, err
	}
	return job, nil
}

// runTrigger fires the auto-run callback for up to the configured batch limit
// of newly queued jobs. Trigger failures are recorded on the job so the
// operator sees them in listings; the job stays pending for a later drain.
func (w *Watcher) runTrigger(jobs []*jobstore.Job) {
	limit := w.cfg.Watcher.AutoRunBatchLimit
	if limit <= 0 || limit > len(jobs) {
		limit = len(jobs)
	}
	for _, job := range jobs[:limit] {
		if err := w.trigger(job); err != nil {
			w.logger.Error("auto-run trigger failed",
				logging.String(logging.FieldJobID, job.JobID), logging.Error(err))
			current, loadErr := w.store.Load(job.JobID)
			if loadErr != nil {
				continue
			}
			if !current.IsTerminal() {
				current.Error = fmt.Sprintf("auto-run: %v", err)
				if saveErr := w.store.Save(current); saveErr != nil {
					w.logger.Error("record trigger failure",
						logging.String(logging.FieldJobID, job.JobID), logging.Error(saveErr))
				}
			}
		}
	}
}

func (w *Watcher) isVideoFile(name string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
