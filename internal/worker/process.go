package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/logging"
	"sessionscribe/internal/metrics"
	"sessionscribe/internal/pipeline"
	"sessionscribe/internal/presets"
	"sessionscribe/internal/progress"
	"sessionscribe/internal/services"
)

// consoleEvery bounds how often transcribe progress reaches the log; the
// heartbeat file itself is rewritten on every segment.
const consoleEvery = 5

// ProcessJob runs one job through the full stage sequence and returns its
// terminal status. Stage failures are caught and recorded on the job; they
// never propagate to the caller.
func (w *Worker) ProcessJob(ctx context.Context, jobID string, opts DrainOptions) jobstore.Status {
	job, err := w.store.Load(jobID)
	if err != nil {
		w.logger.Error("load job", logging.String(logging.FieldJobID, jobID), logging.Error(err))
		return jobstore.StatusFailed
	}
	if job.Status != jobstore.StatusPending {
		return job.Status
	}
	if job.CancelRequested {
		w.finish(job, jobstore.StatusCancelled, "")
		return jobstore.StatusCancelled
	}

	runCfg, err := w.resolveRunConfig(job, opts)
	if err != nil {
		w.finish(job, jobstore.StatusFailed, services.StageMessage("config", err))
		return jobstore.StatusFailed
	}
	job.RunConfig = runCfg
	job.Status = jobstore.StatusProcessing
	w.mergeCancelFlag(job)
	if err := w.store.Save(job); err != nil {
		w.logger.Error("claim job", logging.String(logging.FieldJobID, job.JobID), logging.Error(err))
		return jobstore.StatusFailed
	}
	w.logger.Info("processing job",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String("preset", runCfg.Preset),
		logging.String("raw_path", job.RawPath))

	run := &jobRun{worker: w, job: job, cfg: runCfg}
	status := run.execute(ctx)
	w.logger.Info("job finished",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String("status", string(status)),
		logging.String("error", job.Error))
	return status
}

// resolveRunConfig applies the precedence job-explicit > preset default >
// global default. A run configuration already present on the job was set
// explicitly at enqueue time and wins over drain-level overrides.
func (w *Worker) resolveRunConfig(job *jobstore.Job, opts DrainOptions) (*jobstore.RunConfig, error) {
	if job.RunConfig != nil {
		cfg := *job.RunConfig
		cfg.Force = opts.Force
		return &cfg, nil
	}
	preset := job.Preset
	if preset == "" {
		preset = w.cfg.Worker.Preset
	}
	cfg, err := presets.Resolve(preset, opts.Overrides, w.cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "", "resolve run configuration", err)
	}
	cfg.Force = opts.Force
	return &cfg, nil
}

// jobRun carries the per-job state threaded through the stage sequence.
type jobRun struct {
	worker *Worker
	job    *jobstore.Job
	cfg    *jobstore.RunConfig

	sessionID  string
	sessionDir string
	tracker    *progress.Tracker
}

// execute drives the stage sequence. The cancel flag is re-read from disk
// immediately before every stage, so an external cancel lands at the next
// stage boundary; during transcribe it is additionally checked per segment.
func (r *jobRun) execute(ctx context.Context) jobstore.Status {
	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"ingest", r.ingest},
		{"segment", r.segment},
		{"extract", r.extract},
		{"analyze", r.analyze},
		{"transcribe", r.transcribe},
		{"align", r.align},
		{"compose", r.compose},
		{"verify", r.verify},
	}

	for _, stage := range stages {
		if r.cancelRequested() {
			return r.cancelled()
		}
		if err := stage.run(ctx); err != nil {
			if errors.Is(err, context.Canceled) && r.cancelRequested() {
				return r.cancelled()
			}
			return r.failed(stage.name, err)
		}
	}
	return r.done()
}

// cancelRequested re-reads the cancel flag from disk and folds it into the
// in-memory record. Once observed, the flag sticks: later snapshot saves
// persist it, and later checks return true without trusting whatever a
// concurrent write left on disk.
func (r *jobRun) cancelRequested() bool {
	r.worker.mergeCancelFlag(r.job)
	return r.job.CancelRequested
}

// save persists the worker's snapshot of the job, first reconciling the
// cancel bit that another process may have flipped since the last read. A
// full-snapshot write must never erase a concurrent RequestCancel.
func (r *jobRun) save() error {
	r.worker.mergeCancelFlag(r.job)
	return r.worker.store.Save(r.job)
}

// mergeCancelFlag folds an externally-written cancel request into a record
// about to be saved.
func (w *Worker) mergeCancelFlag(job *jobstore.Job) {
	if job.CancelRequested {
		return
	}
	if current, err := w.store.Load(job.JobID); err == nil && current.CancelRequested {
		job.CancelRequested = true
	}
}

func (r *jobRun) ingest(ctx context.Context) error {
	result, err := r.worker.pipe.Ingest(ctx, r.job.RawPath, r.job.GameOrDefault(), r.job.TagOrDefault(), r.cfg)
	if err != nil {
		return err
	}
	r.sessionID = result.SessionID
	r.sessionDir = result.SessionDir
	r.job.SessionID = result.SessionID
	outputs := r.job.EnsureOutputs()
	outputs.SessionDir = result.SessionDir
	return r.save()
}

func (r *jobRun) segment(ctx context.Context) error {
	r.stageHeartbeat("segment", "splitting recording")
	count, err := r.worker.pipe.Segment(ctx, r.sessionDir, r.cfg)
	if err != nil {
		return err
	}
	outputs := r.job.EnsureOutputs()
	outputs.SegmentCount = count
	outputs.SegmentsDir = r.sessionDir + "/segments"
	return r.save()
}

func (r *jobRun) extract(ctx context.Context) error {
	r.stageHeartbeat("extract", "extracting frames")
	if err := r.worker.pipe.Extract(ctx, r.sessionDir, r.cfg.FramesPerSegment); err != nil {
		return err
	}
	r.job.EnsureOutputs().FramesDir = r.sessionDir + "/frames"
	return r.save()
}

func (r *jobRun) analyze(ctx context.Context) error {
	r.stageHeartbeat("analyze", "analyzing frames with "+r.cfg.AnalyzeBackend)
	return r.worker.pipe.Analyze(ctx, r.sessionDir, r.cfg)
}

// transcribe is the only stage with per-unit progress. The heartbeat tracker
// updates after every segment, and the progress callback doubles as the
// per-segment cancellation check: when the flag appears on disk the stage
// context is cancelled so the collaborator stops at the next segment
// boundary.
func (r *jobRun) transcribe(ctx context.Context) error {
	total := r.job.EnsureOutputs().SegmentCount
	var coverage *progress.Coverage
	if r.cfg.TranscribeLimit > 0 && r.cfg.TranscribeLimit < total {
		coverage = &progress.Coverage{
			Processed:    0,
			Total:        total,
			SkippedLimit: total - r.cfg.TranscribeLimit,
		}
	}

	tracker, err := progress.NewTracker(r.sessionID, r.sessionDir, "transcribe", total, coverage)
	if err != nil {
		return err
	}
	r.tracker = tracker

	stageCtx, cancelStage := context.WithCancel(ctx)
	defer cancelStage()

	onProgress := func(done int) {
		if err := tracker.Update(done, ""); err != nil {
			r.worker.logger.Warn("heartbeat update failed",
				logging.String(logging.FieldJobID, r.job.JobID), logging.Error(err))
		}
		if coverage != nil {
			coverage.Processed = done
		}
		if done%consoleEvery == 0 || done == total {
			r.worker.logger.Info(tracker.ConsoleLine(),
				logging.String(logging.FieldSessionID, r.sessionID))
		}
		if r.cancelRequested() {
			cancelStage()
		}
	}

	result, err := r.worker.pipe.Transcribe(stageCtx, r.sessionDir, r.cfg, onProgress)
	if result != nil {
		outputs := r.job.EnsureOutputs()
		outputs.TranscribeProcessed = result.Processed
		outputs.TranscribeElapsed = result.ElapsedSec
		if saveErr := r.save(); saveErr != nil {
			r.worker.logger.Warn("save transcribe outputs",
				logging.String(logging.FieldJobID, r.job.JobID), logging.Error(saveErr))
		}
	}
	if err != nil {
		return err
	}

	r.recordThroughput(result)
	return nil
}

// recordThroughput feeds the observed rate into the metrics store. Metrics
// persistence failures are logged and ignored; they must never fail the job.
func (r *jobRun) recordThroughput(result *pipeline.TranscribeResult) {
	if r.worker.metrics == nil {
		return
	}
	rate, ok := metrics.ObservedRate(result.Processed, result.ElapsedSec)
	if !ok {
		return
	}
	segmentDuration := r.segmentDurationSec()
	if err := r.worker.metrics.Record(r.cfg.Preset, segmentDuration, rate); err != nil {
		r.worker.logger.Warn("metrics write failed",
			logging.String(logging.FieldJobID, r.job.JobID), logging.Error(err))
	}
}

func (r *jobRun) segmentDurationSec() int {
	manifest, err := pipeline.LoadManifest(r.sessionDir)
	if err != nil || manifest.SegmentDurationSec <= 0 {
		return 15
	}
	return manifest.SegmentDurationSec
}

func (r *jobRun) align(ctx context.Context) error {
	r.stageHeartbeat("align", "aligning transcripts")
	return r.worker.pipe.Align(ctx, r.sessionDir, r.cfg.AlignWindowSeconds)
}

func (r *jobRun) compose(ctx context.Context) error {
	r.stageHeartbeat("compose", "rendering markdown")
	result, err := r.worker.pipe.Compose(ctx, r.sessionDir)
	if err != nil {
		return err
	}
	outputs := r.job.EnsureOutputs()
	outputs.Timeline = result.Timeline
	outputs.Overview = result.Overview
	outputs.Highlights = result.Highlights
	return r.save()
}

func (r *jobRun) verify(ctx context.Context) error {
	report, err := r.worker.pipe.Verify(ctx, r.sessionDir)
	if err != nil {
		return err
	}
	if !report.Passed {
		return fmt.Errorf("session inconsistent: %s", strings.Join(report.Problems, "; "))
	}
	return nil
}

func (r *jobRun) done() jobstore.Status {
	r.finalizeHeartbeat(progress.StageDone)
	r.worker.finish(r.job, jobstore.StatusDone, "")
	return jobstore.StatusDone
}

func (r *jobRun) failed(stage string, err error) jobstore.Status {
	r.finalizeHeartbeat(progress.StageFailed)
	r.worker.logger.Error("stage failed",
		logging.String(logging.FieldJobID, r.job.JobID),
		logging.String(logging.FieldStage, stage),
		logging.String("class", services.Classify(err)),
		logging.Error(err))
	r.worker.finish(r.job, jobstore.StatusFailed, services.StageMessage(stage, err))
	return jobstore.StatusFailed
}

func (r *jobRun) cancelled() jobstore.Status {
	r.finalizeHeartbeat(progress.StageCancelled)
	r.worker.finish(r.job, jobstore.StatusCancelled, "")
	return jobstore.StatusCancelled
}

// finalizeHeartbeat closes out the session heartbeat. Before the transcribe
// tracker exists a one-shot heartbeat is written instead, and before ingest
// there is no session to write into.
func (r *jobRun) finalizeHeartbeat(stage string) {
	if r.tracker != nil {
		if err := r.tracker.Finalize(stage); err != nil {
			r.worker.logger.Warn("finalize heartbeat", logging.Error(err))
		}
		return
	}
	if r.sessionDir == "" {
		return
	}
	total := 0
	if r.job.Outputs != nil {
		total = r.job.Outputs.SegmentCount
	}
	done := 0
	if stage == progress.StageDone {
		done = total
	}
	if err := progress.WriteStageHeartbeat(r.sessionID, r.sessionDir, stage, "", done, total); err != nil {
		r.worker.logger.Warn("write heartbeat", logging.Error(err))
	}
}

func (r *jobRun) stageHeartbeat(stage, message string) {
	if r.sessionDir == "" {
		return
	}
	if err := progress.WriteStageHeartbeat(r.sessionID, r.sessionDir, stage, message, 0, 1); err != nil {
		r.worker.logger.Warn("write heartbeat",
			logging.String(logging.FieldStage, stage), logging.Error(err))
	}
}

// finish writes a job's terminal state. CancelRequested stays set on the
// record for auditability; terminal jobs are never mutated again.
func (w *Worker) finish(job *jobstore.Job, status jobstore.Status, errMsg string) {
	w.mergeCancelFlag(job)
	job.Status = status
	if errMsg != "" {
		job.Error = errMsg
	}
	if err := w.store.Save(job); err != nil {
		w.logger.Error("persist terminal status",
			logging.String(logging.FieldJobID, job.JobID),
			logging.String("status", string(status)),
			logging.Error(err))
	}
}
