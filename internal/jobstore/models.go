package jobstore

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusDone,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusDone:      {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transition occurs from a status.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// RunConfig is the effective, typed per-job stage configuration resolved from
// job-explicit overrides, the preset defaults, and global defaults, in that
// precedence order.
type RunConfig struct {
	Preset               string  `json:"preset"`
	MaxFrames            int     `json:"max_frames"`
	MaxFacts             int     `json:"max_facts"`
	DetailLevel          string  `json:"detail_level"`
	AnalyzeBackend       string  `json:"analyze_backend"`
	TranscribeBackend    string  `json:"transcribe_backend"`
	TranscribeModel      string  `json:"transcribe_model"`
	TranscribeCompute    string  `json:"transcribe_compute"`
	TranscribeBeamSize   int     `json:"transcribe_beam_size"`
	TranscribeVADFilter  bool    `json:"transcribe_vad_filter"`
	TranscribeLimit      int     `json:"transcribe_limit,omitempty"`
	TranscribeMaxSeconds int     `json:"transcribe_max_seconds,omitempty"`
	FramesPerSegment     int     `json:"frames_per_segment"`
	AlignWindowSeconds   float64 `json:"align_window_seconds"`
	SegmentStrategy      string  `json:"segment_strategy"`
	SourceMode           string  `json:"source_mode"`

	// Force makes collaborators recompute stage outputs they would
	// otherwise serve from cache. Not persisted; set per drain.
	Force bool `json:"-"`
}

// MediaInfo holds the ffprobe facts captured when a job is enqueued.
type MediaInfo struct {
	DurationSec float64 `json:"duration_sec,omitempty"`
	SizeBytes   int64   `json:"size_bytes,omitempty"`
	Container   string  `json:"container,omitempty"`
}

// Outputs records the artifacts a job has produced so far. Partial outputs
// from completed stages are retained on failure and cancellation.
type Outputs struct {
	SessionDir          string `json:"session_dir,omitempty"`
	SegmentsDir         string `json:"segments_dir,omitempty"`
	FramesDir           string `json:"frames_dir,omitempty"`
	Timeline            string `json:"timeline,omitempty"`
	Overview            string `json:"overview,omitempty"`
	Highlights          string `json:"highlights,omitempty"`
	SegmentCount        int    `json:"segment_count,omitempty"`
	TranscribeProcessed int    `json:"transcribe_processed,omitempty"`
	TranscribeElapsed   float64 `json:"transcribe_elapsed_sec,omitempty"`
}

// Job represents one queued video persisted as a single record file.
//
// JobID is immutable once assigned. CancelRequested is orthogonal to Status:
// it may be set at any time, including on terminal jobs, where it has no
// effect. Terminal jobs are retained indefinitely and never otherwise mutated.
type Job struct {
	JobID           string     `json:"job_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Status          Status     `json:"status"`
	CancelRequested bool       `json:"cancel_requested,omitempty"`
	RawPath         string     `json:"raw_path"`
	RawDir          string     `json:"raw_dir,omitempty"`
	Game            string     `json:"game,omitempty"`
	SuggestedGame   string     `json:"suggested_game,omitempty"`
	Tag             string     `json:"tag,omitempty"`
	SessionID       string     `json:"session_id,omitempty"`
	Preset          string     `json:"preset,omitempty"`
	RunConfig       *RunConfig `json:"run_config,omitempty"`
	Error           string     `json:"error,omitempty"`
	Outputs         *Outputs   `json:"outputs,omitempty"`
	Media           *MediaInfo `json:"media,omitempty"`

	EstimatedSegments   int `json:"estimated_segments,omitempty"`
	EstimatedRuntimeSec int `json:"estimated_runtime_sec,omitempty"`
}

// GameOrDefault returns the explicit game name, the filename guess, or
// "unknown" when neither is present.
func (j *Job) GameOrDefault() string {
	if j.Game != "" {
		return j.Game
	}
	if j.SuggestedGame != "" {
		return j.SuggestedGame
	}
	return "unknown"
}

// TagOrDefault returns the run tag, defaulting to "run01".
func (j *Job) TagOrDefault() string {
	if j.Tag != "" {
		return j.Tag
	}
	return "run01"
}

// IsTerminal reports whether the job reached a terminal status.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// EnsureOutputs returns the job's outputs, allocating them on first use.
func (j *Job) EnsureOutputs() *Outputs {
	if j.Outputs == nil {
		j.Outputs = &Outputs{}
	}
	return j.Outputs
}
