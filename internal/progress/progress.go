// Package progress maintains the per-session heartbeat file that external
// viewers poll for in-flight status finer-grained than the job record.
package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sessionscribe/internal/fileutil"
)

// Terminal stages that lock a tracker against further writes.
const (
	StageDone      = "done"
	StageFailed    = "failed"
	StageCancelled = "cancelled"
)

// Coverage describes how much of the session a limited transcribe pass
// actually covered.
type Coverage struct {
	Processed    int `json:"processed"`
	Total        int `json:"total"`
	SkippedLimit int `json:"skipped_limit"`
}

// Snapshot is the on-disk heartbeat schema. EtaSec is omitted until at least
// one unit has completed.
type Snapshot struct {
	SessionID  string    `json:"session_id"`
	Stage      string    `json:"stage"`
	Done       int       `json:"done"`
	Total      int       `json:"total"`
	ElapsedSec float64   `json:"elapsed_sec"`
	EtaSec     *float64  `json:"eta_sec,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
	Coverage   *Coverage `json:"coverage,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// Tracker rewrites the session heartbeat atomically on every processed unit.
// Once a terminal stage has been written the tracker locks: late updates from
// an in-flight collaborator callback cannot regress a finished session.
type Tracker struct {
	sessionID string
	path      string
	stage     string
	total     int
	done      int
	coverage  *Coverage
	message   string
	started   time.Time
	locked    bool

	now func() time.Time
}

// HeartbeatPath returns the heartbeat location for a session directory.
func HeartbeatPath(sessionDir string) string {
	return filepath.Join(sessionDir, "outputs", "progress.json")
}

// NewTracker starts a heartbeat for a stage and writes the initial snapshot.
func NewTracker(sessionID, sessionDir, stage string, total int, coverage *Coverage) (*Tracker, error) {
	t := &Tracker{
		sessionID: sessionID,
		path:      HeartbeatPath(sessionDir),
		stage:     stage,
		total:     total,
		coverage:  coverage,
		now:       time.Now,
	}
	t.started = t.now()
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return nil, fmt.Errorf("create outputs directory: %w", err)
	}
	if err := t.write(); err != nil {
		return nil, err
	}
	return t, nil
}

// Update records the current completion count. Counts never exceed the stage
// total and never move backwards.
func (t *Tracker) Update(done int, message string) error {
	if t.locked {
		return nil
	}
	if done > t.total {
		done = t.total
	}
	if done > t.done {
		t.done = done
	}
	if message != "" {
		t.message = message
	}
	return t.write()
}

// Finalize writes the closing snapshot for a stage. Terminal stages (done,
// failed, cancelled) lock the tracker; "done" also forces done==total.
func (t *Tracker) Finalize(stage string) error {
	if t.locked {
		return nil
	}
	t.stage = stage
	if stage == StageDone {
		t.done = t.total
	}
	err := t.write()
	switch stage {
	case StageDone, StageFailed, StageCancelled:
		t.locked = true
	}
	return err
}

// Done returns the current completion count.
func (t *Tracker) Done() int { return t.done }

func (t *Tracker) write() error {
	elapsed := t.now().Sub(t.started).Seconds()
	snapshot := Snapshot{
		SessionID:  t.sessionID,
		Stage:      t.stage,
		Done:       t.done,
		Total:      t.total,
		ElapsedSec: round2(elapsed),
		UpdatedAt:  t.now().UTC(),
		Coverage:   t.coverage,
		Message:    t.message,
	}
	if eta := etaSeconds(elapsed, t.done, t.total); eta != nil {
		snapshot.EtaSec = eta
	}
	if err := fileutil.WriteJSONAtomic(t.path, snapshot); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}

// ConsoleLine formats a compact progress line for terminal output. Callers
// throttle how often they print it; the heartbeat file itself is written on
// every update.
func (t *Tracker) ConsoleLine() string {
	elapsed := t.now().Sub(t.started).Seconds()
	line := fmt.Sprintf("%s: %d/%d segments, %.1fs elapsed", titleStage(t.stage), t.done, t.total, elapsed)
	if eta := etaSeconds(elapsed, t.done, t.total); eta != nil {
		line += ", ETA " + FormatDuration(*eta)
	}
	return line
}

// etaSeconds estimates time to completion from the observed per-unit pace.
// Nil until the first unit finishes and after the last one.
func etaSeconds(elapsed float64, done, total int) *float64 {
	if done <= 0 || done >= total {
		return nil
	}
	eta := round2(elapsed / float64(done) * float64(total-done))
	return &eta
}

// WriteStageHeartbeat records a one-shot snapshot for stages without
// iterative progress, such as segment or analyze.
func WriteStageHeartbeat(sessionID, sessionDir, stage, message string, done, total int) error {
	path := HeartbeatPath(sessionDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create outputs directory: %w", err)
	}
	snapshot := Snapshot{
		SessionID: sessionID,
		Stage:     stage,
		Done:      done,
		Total:     total,
		UpdatedAt: time.Now().UTC(),
		Message:   message,
	}
	if err := fileutil.WriteJSONAtomic(path, snapshot); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}

// Read loads the current heartbeat for a session directory.
func Read(sessionDir string) (*Snapshot, error) {
	var snapshot Snapshot
	if err := fileutil.ReadJSON(HeartbeatPath(sessionDir), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// FormatDuration renders seconds as "45s", "3m 22s", or "1h 5m".
func FormatDuration(seconds float64) string {
	total := int(seconds)
	switch {
	case total < 60:
		return fmt.Sprintf("%ds", total)
	case total < 3600:
		return fmt.Sprintf("%dm %ds", total/60, total%60)
	default:
		return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func titleStage(stage string) string {
	if stage == "" {
		return stage
	}
	b := []byte(stage)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
