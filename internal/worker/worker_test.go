package worker_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sessionscribe/internal/config"
	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/logging"
	"sessionscribe/internal/metrics"
	"sessionscribe/internal/pipeline"
	"sessionscribe/internal/progress"
	"sessionscribe/internal/testsupport"
	"sessionscribe/internal/worker"
)

type fixture struct {
	cfg     *config.Config
	store   *jobstore.Store
	metrics *metrics.Store
	mock    *pipeline.Mock
	worker  *worker.Worker
}

// newFixture wires a worker over a mock pipeline whose 45-second recording
// splits into nine 5-second segments under the auto strategy.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	metricsStore := metrics.Open(cfg.MetricsPath())
	mock := &pipeline.Mock{SessionsDir: cfg.Paths.SessionsDir, TotalDuration: 45}
	w := worker.New(cfg, store, mock, metricsStore, logging.NewNop())
	return &fixture{cfg: cfg, store: store, metrics: metricsStore, mock: mock, worker: w}
}

func (f *fixture) enqueueRecording(t *testing.T, name string) *jobstore.Job {
	t.Helper()
	path := testsupport.WriteVideo(t, f.cfg.Paths.RawDirs[0], name, "video-bytes")
	return testsupport.EnqueueJob(t, f.store, path)
}

func TestProcessJobRunsFullPipeline(t *testing.T) {
	f := newFixture(t)
	job := f.enqueueRecording(t, "2026-01-20_gnosia_run01.mp4")

	status := f.worker.ProcessJob(context.Background(), job.JobID, worker.DrainOptions{})
	if status != jobstore.StatusDone {
		t.Fatalf("expected done, got %s", status)
	}

	final, err := f.store.Load(job.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if final.SessionID == "" {
		t.Fatal("session id not assigned")
	}
	if final.RunConfig == nil || final.RunConfig.Preset != "fast" {
		t.Fatalf("run config not resolved: %+v", final.RunConfig)
	}
	if final.Outputs == nil || final.Outputs.SegmentCount != 9 {
		t.Fatalf("expected 9 segments, got %+v", final.Outputs)
	}
	if final.Outputs.TranscribeProcessed != 9 {
		t.Fatalf("expected 9 transcribed, got %d", final.Outputs.TranscribeProcessed)
	}
	if final.Outputs.Timeline == "" || final.Outputs.Overview == "" {
		t.Fatalf("compose outputs missing: %+v", final.Outputs)
	}

	snapshot, err := progress.Read(final.Outputs.SessionDir)
	if err != nil {
		t.Fatalf("read heartbeat: %v", err)
	}
	if snapshot.Stage != progress.StageDone || snapshot.Done != snapshot.Total {
		t.Fatalf("heartbeat not finalized: %+v", snapshot)
	}
}

func TestStageFailureIsolatesJob(t *testing.T) {
	f := newFixture(t)
	f.mock.FailStage = "analyze"
	f.mock.FailErr = errors.New("API timeout")

	failing := f.enqueueRecording(t, "failing.mp4")
	healthy := f.enqueueRecording(t, "healthy.mp4")

	result, err := f.worker.Drain(context.Background(), worker.DrainOptions{})
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if result.Processed != 2 || result.Failed != 2 {
		// Both jobs hit the same failing stage.
		t.Fatalf("unexpected drain result: %+v", result)
	}

	job, err := f.store.Load(failing.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if job.Status != jobstore.StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Error != "analyze: API timeout" {
		t.Fatalf("error = %q, want %q", job.Error, "analyze: API timeout")
	}
	// Outputs from stages before the failure survive.
	if job.Outputs == nil || job.Outputs.SegmentCount != 9 {
		t.Fatalf("earlier outputs lost: %+v", job.Outputs)
	}

	// The second job was still attempted; one failure never stops the loop.
	second, err := f.store.Load(healthy.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if second.Status != jobstore.StatusFailed || second.Error != "analyze: API timeout" {
		t.Fatalf("second job not processed independently: %+v", second)
	}
}

func TestMissingRawFileFailsWithoutSession(t *testing.T) {
	f := newFixture(t)
	job := testsupport.EnqueueJob(t, f.store, f.cfg.Paths.RawDirs[0]+"/vanished.mp4")

	status := f.worker.ProcessJob(context.Background(), job.JobID, worker.DrainOptions{})
	if status != jobstore.StatusFailed {
		t.Fatalf("expected failed, got %s", status)
	}

	final, err := f.store.Load(job.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if final.SessionID != "" {
		t.Fatalf("no session should exist for ingest failure, got %q", final.SessionID)
	}
	// The classification prefix is stripped; viewers see stage then detail.
	if !strings.HasPrefix(final.Error, "ingest: raw file unavailable") {
		t.Fatalf("error = %q, want ingest-stage detail", final.Error)
	}
}

func TestCancelBeforeStartSkipsProcessing(t *testing.T) {
	f := newFixture(t)
	job := f.enqueueRecording(t, "early-cancel.mp4")
	if _, err := f.store.RequestCancel(job.JobID); err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}

	status := f.worker.ProcessJob(context.Background(), job.JobID, worker.DrainOptions{})
	if status != jobstore.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", status)
	}

	final, err := f.store.Load(job.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if final.SessionID != "" {
		t.Fatal("cancelled-before-start job must not create a session")
	}
}

func TestCooperativeCancelDuringTranscribe(t *testing.T) {
	f := newFixture(t)
	job := f.enqueueRecording(t, "mid-cancel.mp4")

	// Flip the flag on disk after the fourth segment completes.
	f.mock.AfterSegment = func(done int) {
		if done == 4 {
			if _, err := f.store.RequestCancel(job.JobID); err != nil {
				t.Errorf("RequestCancel failed: %v", err)
			}
		}
	}

	status := f.worker.ProcessJob(context.Background(), job.JobID, worker.DrainOptions{})
	if status != jobstore.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", status)
	}

	final, err := f.store.Load(job.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if final.Status != jobstore.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", final.Status)
	}
	if !final.CancelRequested {
		t.Fatal("cancel flag must survive the post-transcribe snapshot save")
	}
	if final.Outputs == nil || final.Outputs.TranscribeProcessed != 4 {
		t.Fatalf("expected 4 segments retained, got %+v", final.Outputs)
	}

	snapshot, err := progress.Read(final.Outputs.SessionDir)
	if err != nil {
		t.Fatalf("read heartbeat: %v", err)
	}
	if snapshot.Stage != progress.StageCancelled {
		t.Fatalf("heartbeat stage = %s, want cancelled", snapshot.Stage)
	}
	if snapshot.Done != 4 || snapshot.Total != 9 {
		t.Fatalf("heartbeat progress = %d/%d, want 4/9", snapshot.Done, snapshot.Total)
	}
}

// cancelMidSegment flips the cancel flag from another writer while the
// segment stage runs. The stage then completes and the worker saves its
// outputs; that snapshot save must not erase the flag.
type cancelMidSegment struct {
	*pipeline.Mock
	store *jobstore.Store
	jobID string
}

func (p *cancelMidSegment) Segment(ctx context.Context, sessionDir string, cfg *jobstore.RunConfig) (int, error) {
	if _, err := p.store.RequestCancel(p.jobID); err != nil {
		return 0, err
	}
	return p.Mock.Segment(ctx, sessionDir, cfg)
}

func TestCancelDuringStageSurvivesSnapshotSaves(t *testing.T) {
	f := newFixture(t)
	job := f.enqueueRecording(t, "stage-cancel.mp4")

	pipe := &cancelMidSegment{Mock: f.mock, store: f.store, jobID: job.JobID}
	w := worker.New(f.cfg, f.store, pipe, f.metrics, logging.NewNop())

	status := w.ProcessJob(context.Background(), job.JobID, worker.DrainOptions{})
	if status != jobstore.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", status)
	}

	final, err := f.store.Load(job.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if final.Status != jobstore.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", final.Status)
	}
	if !final.CancelRequested {
		t.Fatal("cancel flag was erased by a stage outputs save")
	}
	// The completed stage's outputs survive the cancellation.
	if final.Outputs == nil || final.Outputs.SegmentCount != 9 {
		t.Fatalf("segment outputs lost: %+v", final.Outputs)
	}
}

func TestSuccessfulTranscribeRecordsThroughput(t *testing.T) {
	f := newFixture(t)
	job := f.enqueueRecording(t, "metrics.mp4")

	status := f.worker.ProcessJob(context.Background(), job.JobID, worker.DrainOptions{})
	if status != jobstore.StatusDone {
		t.Fatalf("expected done, got %s", status)
	}

	record := f.metrics.Lookup("fast", 5)
	if record == nil {
		t.Fatal("expected throughput record after successful transcribe")
	}
	if record.Samples != 1 || record.AvgRateEMA <= 0 {
		t.Fatalf("unexpected throughput record: %+v", record)
	}
}

func TestTranscribeLimitReportsCoverage(t *testing.T) {
	f := newFixture(t)
	f.cfg.Worker.TranscribeLimit = 4
	job := f.enqueueRecording(t, "limited.mp4")

	status := f.worker.ProcessJob(context.Background(), job.JobID, worker.DrainOptions{})
	if status != jobstore.StatusDone {
		t.Fatalf("expected done, got %s", status)
	}

	final, err := f.store.Load(job.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if final.Outputs.TranscribeProcessed != 4 {
		t.Fatalf("expected 4 processed under limit, got %d", final.Outputs.TranscribeProcessed)
	}
}

func TestDrainHonorsLimitAndDryRun(t *testing.T) {
	f := newFixture(t)
	f.enqueueRecording(t, "one.mp4")
	f.enqueueRecording(t, "two.mp4")

	dry, err := f.worker.Drain(context.Background(), worker.DrainOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry drain failed: %v", err)
	}
	if dry.Skipped != 2 || dry.Processed != 0 {
		t.Fatalf("dry run must not process: %+v", dry)
	}

	limited, err := f.worker.Drain(context.Background(), worker.DrainOptions{Limit: 1})
	if err != nil {
		t.Fatalf("limited drain failed: %v", err)
	}
	if limited.Processed != 1 || limited.Succeeded != 1 {
		t.Fatalf("unexpected limited drain result: %+v", limited)
	}

	pending, err := f.store.Pending()
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 job left pending, got %d", len(pending))
	}
}

func TestExplicitRunConfigWinsOverDrainOverrides(t *testing.T) {
	f := newFixture(t)
	job := f.enqueueRecording(t, "explicit.mp4")

	loaded, err := f.store.Load(job.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	loaded.RunConfig = &jobstore.RunConfig{
		Preset:           "quality",
		MaxFrames:        6,
		MaxFacts:         5,
		AnalyzeBackend:   "mock",
		FramesPerSegment: 2,
		SegmentStrategy:  "auto",
	}
	if err := f.store.Save(loaded); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	status := f.worker.ProcessJob(context.Background(), job.JobID, worker.DrainOptions{})
	if status != jobstore.StatusDone {
		t.Fatalf("expected done, got %s", status)
	}

	final, err := f.store.Load(job.JobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if final.RunConfig.Preset != "quality" || final.RunConfig.MaxFrames != 6 {
		t.Fatalf("explicit run config lost: %+v", final.RunConfig)
	}
}
