// Package pipeline defines the stage collaborators the worker drives for
// each job, plus a deterministic mock used by tests and the mock analyze
// backend.
package pipeline

import (
	"context"

	"sessionscribe/internal/jobstore"
)

// Analyze backends.
const (
	BackendMock    = "mock"
	BackendClaude  = "claude"
	BackendGemini  = "gemini_3pro"
	BackendOpenOCR = "open_ocr"
)

// ProgressFunc is invoked by Transcribe after each processed segment with the
// cumulative completed count.
type ProgressFunc func(done int)

// IngestResult describes the session skeleton created for a job.
type IngestResult struct {
	SessionID  string
	SessionDir string
	SourcePath string
	SourceMode string
}

// TranscribeResult reports how much of the session the transcribe pass
// covered. Processed may fall short of Total when a limit truncates work.
type TranscribeResult struct {
	Processed    int
	Total        int
	SkippedLimit int
	ElapsedSec   float64
}

// ComposeResult names the markdown artifacts written under outputs/.
type ComposeResult struct {
	Timeline   string
	Overview   string
	Highlights string
}

// VerifyReport is the outcome of the post-compose consistency check.
type VerifyReport struct {
	Passed   bool
	Problems []string
}

// Pipeline is the sequence of synchronous stage calls the worker makes per
// job. Every stage may block for the full duration of an external tool or
// API call; cancellation is handled by the worker between stages, not by
// interrupting a stage.
type Pipeline interface {
	// Ingest creates the session skeleton, writes the manifest, and places
	// the source recording.
	Ingest(ctx context.Context, rawPath, game, tag string, cfg *jobstore.RunConfig) (*IngestResult, error)

	// Segment splits the source into fixed-length clips per the manifest's
	// segmentation plan and returns the segment count.
	Segment(ctx context.Context, sessionDir string, cfg *jobstore.RunConfig) (int, error)

	// Extract pulls representative frames from each segment.
	Extract(ctx context.Context, sessionDir string, framesPerSegment int) error

	// Analyze runs the vision backend over extracted frames, producing
	// per-segment facts.
	Analyze(ctx context.Context, sessionDir string, cfg *jobstore.RunConfig) error

	// Transcribe runs ASR over each segment, invoking onProgress after each
	// one completes.
	Transcribe(ctx context.Context, sessionDir string, cfg *jobstore.RunConfig, onProgress ProgressFunc) (*TranscribeResult, error)

	// Align matches OCR text against ASR transcripts within a time window to
	// produce quote candidates.
	Align(ctx context.Context, sessionDir string, windowSeconds float64) error

	// Compose renders the markdown outputs from facts, transcripts, and
	// aligned quotes.
	Compose(ctx context.Context, sessionDir string) (*ComposeResult, error)

	// Verify checks the finished session directory for internal consistency.
	Verify(ctx context.Context, sessionDir string) (*VerifyReport, error)
}
