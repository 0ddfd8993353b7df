package jobstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"sessionscribe/internal/config"
	"sessionscribe/internal/fileutil"
)

// ErrNotFound is returned when no record exists for a job identifier.
var ErrNotFound = errors.New("job not found")

// Store persists one JSON record file per job plus an append-only pending
// queue log. All record writes are full snapshots via temp-file + rename, so
// concurrent readers (CLI, web viewers, the worker) never observe a partially
// written record. No cross-process locking is provided beyond atomic rename;
// the worker is the sole writer of non-terminal fields while a job is in
// flight, and RequestCancel's single-field write is idempotent.
type Store struct {
	jobsDir  string
	queueLog string
}

// Open prepares the store directories under the configured queue dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return &Store{jobsDir: cfg.JobsDir(), queueLog: cfg.QueueLogPath()}, nil
}

// NewStoreAt constructs a store rooted at an explicit queue directory.
func NewStoreAt(queueDir string) (*Store, error) {
	jobsDir := filepath.Join(queueDir, "jobs")
	if err := os.MkdirAll(jobsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create jobs directory: %w", err)
	}
	return &Store{
		jobsDir:  jobsDir,
		queueLog: filepath.Join(queueDir, "pending.jsonl"),
	}, nil
}

// JobsDir returns the directory holding per-job record files.
func (s *Store) JobsDir() string { return s.jobsDir }

// QueueLogPath returns the append-only pending queue log path.
func (s *Store) QueueLogPath() string { return s.queueLog }

// Enqueue assigns an identifier to a new pending job, journals it to the
// queue log, and writes its record file. The queue-log append is flushed
// before the record write so a crash cannot lose an acknowledged enqueue;
// the worst case after a crash between the two writes is a duplicate job on
// rescan, which downstream processing tolerates.
func (s *Store) Enqueue(job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = StatusPending
	}

	line, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal queue log entry: %w", err)
	}
	if err := fileutil.AppendLine(s.queueLog, line); err != nil {
		return fmt.Errorf("append queue log: %w", err)
	}
	return s.Save(job)
}

// Save writes a complete snapshot of the job record atomically.
func (s *Store) Save(job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.JobID == "" {
		return errors.New("job id is empty")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := fileutil.WriteJSONAtomic(s.recordPath(job.JobID), job); err != nil {
		return fmt.Errorf("save job %s: %w", job.JobID, err)
	}
	return nil
}

// Load returns the record for a job identifier or ErrNotFound.
func (s *Store) Load(jobID string) (*Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, ErrNotFound
	}
	var job Job
	if err := fileutil.ReadJSON(s.recordPath(jobID), &job); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	return &job, nil
}

// List returns all jobs sorted newest-first by creation time with job_id as a
// stable tiebreaker. Unreadable record files are skipped rather than failing
// the whole listing; a torn write is impossible, but a foreign file in the
// jobs directory should not hide every job.
func (s *Store) List() ([]*Job, error) {
	entries, err := os.ReadDir(s.jobsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read jobs directory: %w", err)
	}

	jobs := make([]*Job, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var job Job
		if err := fileutil.ReadJSON(filepath.Join(s.jobsDir, entry.Name()), &job); err != nil {
			continue
		}
		if job.JobID == "" {
			continue
		}
		jobs = append(jobs, &job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].JobID < jobs[j].JobID
	})
	return jobs, nil
}

// Pending returns pending jobs in FIFO order (oldest first, job_id tiebreak).
func (s *Store) Pending() ([]*Job, error) {
	jobs, err := s.List()
	if err != nil {
		return nil, err
	}
	pending := make([]*Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Status == StatusPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].JobID < pending[j].JobID
	})
	return pending, nil
}

// NextPending returns the oldest pending job, or nil when the queue is empty.
func (s *Store) NextPending() (*Job, error) {
	pending, err := s.Pending()
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return pending[0], nil
}

// RequestCancel idempotently sets cancel_requested on a job and returns the
// updated record. Setting the flag on a terminal job persists the flag but
// has no effect on status.
func (s *Store) RequestCancel(jobID string) (*Job, error) {
	job, err := s.Load(jobID)
	if err != nil {
		return nil, err
	}
	if job.CancelRequested {
		return job, nil
	}
	job.CancelRequested = true
	if err := s.Save(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats() (map[Status]int, error) {
	jobs, err := s.List()
	if err != nil {
		return nil, err
	}
	stats := make(map[Status]int, len(allStatuses))
	for _, job := range jobs {
		stats[job.Status]++
	}
	return stats, nil
}

func (s *Store) recordPath(jobID string) string {
	return filepath.Join(s.jobsDir, jobID+".json")
}
