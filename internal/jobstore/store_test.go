package jobstore_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/testsupport"
)

func TestEnqueueAssignsIdentityAndPersists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := &jobstore.Job{RawPath: "/captures/gnosia.mp4"}
	if err := store.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("expected job id to be assigned")
	}
	if job.Status != jobstore.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}

	loaded, err := store.Load(job.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.RawPath != job.RawPath {
		t.Fatalf("unexpected raw path: %q", loaded.RawPath)
	}
}

func TestLoadMissingJobReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Load("no-such-job"); !errors.Is(err, jobstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStrayTempFileDoesNotCorruptStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.EnqueueJob(t, store, "/captures/elden-ring.mp4")

	// A crash between temp write and rename leaves an orphan beside the
	// committed record.
	stray := filepath.Join(store.JobsDir(), "."+job.JobID+".json.tmp-123456")
	if err := os.WriteFile(stray, []byte("{\"job_id\": trunc"), 0o644); err != nil {
		t.Fatalf("write stray temp file: %v", err)
	}

	loaded, err := store.Load(job.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.RawPath != "/captures/elden-ring.mp4" {
		t.Fatalf("unexpected raw path: %q", loaded.RawPath)
	}

	jobs, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job despite orphan temp file, got %d", len(jobs))
	}
	if jobs[0].JobID != job.JobID {
		t.Fatalf("unexpected job id: %q", jobs[0].JobID)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	base := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		job := &jobstore.Job{
			RawPath:   fmt.Sprintf("/captures/clip%d.mp4", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Enqueue(job); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	jobs, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].CreatedAt.After(jobs[i-1].CreatedAt) {
			t.Fatalf("jobs not newest-first at index %d", i)
		}
	}
}

func TestPendingIsFIFO(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	base := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		job := &jobstore.Job{
			RawPath:   fmt.Sprintf("/captures/clip%d.mp4", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Enqueue(job); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		ids = append(ids, job.JobID)
	}

	// A terminal job must not show up as pending.
	done, err := store.Load(ids[0])
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	done.Status = jobstore.StatusDone
	if err := store.Save(done); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	pending, err := store.Pending()
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].JobID != ids[1] || pending[1].JobID != ids[2] {
		t.Fatalf("pending not FIFO: %s, %s", pending[0].JobID, pending[1].JobID)
	}

	next, err := store.NextPending()
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.JobID != ids[1] {
		t.Fatalf("unexpected next pending: %#v", next)
	}
}

func TestRequestCancelIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.EnqueueJob(t, store, "/captures/gnosia.mp4")

	first, err := store.RequestCancel(job.JobID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if !first.CancelRequested {
		t.Fatal("expected cancel_requested to be set")
	}
	if first.Status != jobstore.StatusPending {
		t.Fatalf("cancel must not change status, got %s", first.Status)
	}

	second, err := store.RequestCancel(job.JobID)
	if err != nil {
		t.Fatalf("second RequestCancel failed: %v", err)
	}
	if !second.CancelRequested {
		t.Fatal("expected cancel_requested to remain set")
	}
}

func TestRequestCancelOnTerminalJobIsHarmless(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.EnqueueJob(t, store, "/captures/gnosia.mp4")

	job.Status = jobstore.StatusDone
	if err := store.Save(job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	updated, err := store.RequestCancel(job.JobID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if updated.Status != jobstore.StatusDone {
		t.Fatalf("terminal status must survive cancel, got %s", updated.Status)
	}
	if !updated.CancelRequested {
		t.Fatal("cancel_requested should still be recorded")
	}
}

func TestStatusParsingAndTerminality(t *testing.T) {
	if _, ok := jobstore.ParseStatus("bogus"); ok {
		t.Fatal("expected bogus status to be rejected")
	}
	for _, status := range []jobstore.Status{jobstore.StatusDone, jobstore.StatusFailed, jobstore.StatusCancelled} {
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
	for _, status := range []jobstore.Status{jobstore.StatusPending, jobstore.StatusProcessing} {
		if status.IsTerminal() {
			t.Fatalf("%s should not be terminal", status)
		}
	}
}
