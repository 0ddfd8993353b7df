package progress_test

import (
	"path/filepath"
	"testing"

	"sessionscribe/internal/progress"
)

func sessionDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "2026-01-20_12-00-00_gnosia_run01")
}

func TestTrackerWritesHeartbeatWithEta(t *testing.T) {
	dir := sessionDir(t)
	tracker, err := progress.NewTracker("2026-01-20_12-00-00_gnosia_run01", dir, "transcribe", 10, nil)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	snapshot, err := progress.Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snapshot.Stage != "transcribe" || snapshot.Done != 0 || snapshot.Total != 10 {
		t.Fatalf("unexpected initial snapshot: %+v", snapshot)
	}
	if snapshot.EtaSec != nil {
		t.Fatal("eta must be omitted while done==0")
	}

	if err := tracker.Update(4, ""); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	snapshot, err = progress.Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snapshot.Done != 4 {
		t.Fatalf("expected done=4, got %d", snapshot.Done)
	}
	if snapshot.Done > snapshot.Total {
		t.Fatal("done must never exceed total")
	}
}

func TestTrackerClampsDoneToTotal(t *testing.T) {
	dir := sessionDir(t)
	tracker, err := progress.NewTracker("s", dir, "transcribe", 5, nil)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	if err := tracker.Update(99, ""); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	snapshot, err := progress.Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snapshot.Done != 5 {
		t.Fatalf("expected clamp to total, got %d", snapshot.Done)
	}
}

func TestFinalizeDoneForcesCompletion(t *testing.T) {
	dir := sessionDir(t)
	tracker, err := progress.NewTracker("s", dir, "transcribe", 8, nil)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	if err := tracker.Update(3, ""); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := tracker.Finalize(progress.StageDone); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	snapshot, err := progress.Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snapshot.Stage != progress.StageDone {
		t.Fatalf("expected stage done, got %s", snapshot.Stage)
	}
	if snapshot.Done != snapshot.Total {
		t.Fatalf("stage done requires done==total, got %d/%d", snapshot.Done, snapshot.Total)
	}
}

func TestTerminalStageLocksTracker(t *testing.T) {
	dir := sessionDir(t)
	tracker, err := progress.NewTracker("s", dir, "transcribe", 9, nil)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	if err := tracker.Update(4, ""); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := tracker.Finalize(progress.StageCancelled); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// A late collaborator callback must not resurrect progress.
	if err := tracker.Update(7, ""); err != nil {
		t.Fatalf("post-terminal Update errored: %v", err)
	}
	if err := tracker.Finalize(progress.StageDone); err != nil {
		t.Fatalf("post-terminal Finalize errored: %v", err)
	}

	snapshot, err := progress.Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snapshot.Stage != progress.StageCancelled {
		t.Fatalf("terminal stage overwritten: %s", snapshot.Stage)
	}
	if snapshot.Done != 4 || snapshot.Total != 9 {
		t.Fatalf("cancelled progress not retained: %d/%d", snapshot.Done, snapshot.Total)
	}
}

func TestCoverageSurvivesWrites(t *testing.T) {
	dir := sessionDir(t)
	coverage := &progress.Coverage{Processed: 0, Total: 40, SkippedLimit: 30}
	tracker, err := progress.NewTracker("s", dir, "transcribe", 10, coverage)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	if err := tracker.Update(2, ""); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	snapshot, err := progress.Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snapshot.Coverage == nil || snapshot.Coverage.SkippedLimit != 30 {
		t.Fatalf("coverage missing from snapshot: %+v", snapshot.Coverage)
	}
}

func TestWriteStageHeartbeat(t *testing.T) {
	dir := sessionDir(t)
	if err := progress.WriteStageHeartbeat("s", dir, "segment", "splitting recording", 0, 1); err != nil {
		t.Fatalf("WriteStageHeartbeat failed: %v", err)
	}
	snapshot, err := progress.Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snapshot.Stage != "segment" || snapshot.Message != "splitting recording" {
		t.Fatalf("unexpected heartbeat: %+v", snapshot)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{45, "45s"},
		{202, "3m 22s"},
		{3900, "1h 5m"},
	}
	for _, tc := range cases {
		if got := progress.FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%g) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
