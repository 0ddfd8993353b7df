package testsupport

import (
	"testing"
	"time"

	"sessionscribe/internal/config"
	"sessionscribe/internal/jobstore"
)

// MustOpenStore opens a job store over the test config's queue directory.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()
	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

// EnqueueJob queues a minimal pending job for the given raw path.
func EnqueueJob(t testing.TB, store *jobstore.Store, rawPath string) *jobstore.Job {
	t.Helper()
	job := &jobstore.Job{
		CreatedAt: time.Now().UTC(),
		Status:    jobstore.StatusPending,
		RawPath:   rawPath,
	}
	if err := store.Enqueue(job); err != nil {
		t.Fatalf("enqueue job: %v", err)
	}
	return job
}
