package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sessionscribe/internal/fileutil"
	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/media"
	"sessionscribe/internal/services"
	"sessionscribe/internal/session"
)

// Mock is a deterministic pipeline used for the mock analyze backend and in
// tests. It writes real files into the session directory so downstream
// consumers and the verify stage behave exactly as with a live backend, but
// all content is synthesized.
type Mock struct {
	// SessionsDir is the root under which session directories are created.
	SessionsDir string

	// TotalDuration stands in for the probed recording length. Defaults to
	// 45 seconds.
	TotalDuration float64

	// SegmentDelay inserts a pause per transcribed segment so tests can
	// exercise elapsed-time handling. Zero by default.
	SegmentDelay time.Duration

	// FailStage, when set, makes the named stage return FailErr.
	FailStage string
	FailErr   error

	// AfterSegment runs after each transcribed segment with the cumulative
	// count, before onProgress fires. Tests use it to flip cancel flags at a
	// precise point.
	AfterSegment func(done int)

	// Clock overrides the session timestamp for deterministic session ids.
	Clock func() time.Time
}

var _ Pipeline = (*Mock)(nil)

func (m *Mock) failure(stage string) error {
	if m.FailStage != stage {
		return nil
	}
	if m.FailErr != nil {
		return m.FailErr
	}
	return fmt.Errorf("%s failed", stage)
}

func (m *Mock) duration() float64 {
	if m.TotalDuration > 0 {
		return m.TotalDuration
	}
	return 45
}

func (m *Mock) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

func (m *Mock) Ingest(ctx context.Context, rawPath, game, tag string, cfg *jobstore.RunConfig) (*IngestResult, error) {
	if err := m.failure("ingest"); err != nil {
		return nil, err
	}
	if _, err := os.Stat(rawPath); err != nil {
		return nil, services.Wrap(services.ErrIngestion, "", "", "raw file unavailable", err)
	}

	id := session.NewID(game, tag, m.now())
	sessionDir, err := session.CreateSkeleton(m.SessionsDir, id)
	if err != nil {
		return nil, err
	}

	var sourcePath, sourceMode string
	if cfg != nil && cfg.SourceMode == "copy" {
		sourcePath, err = session.CopySource(rawPath, sessionDir)
		sourceMode = "copy"
	} else {
		sourcePath, sourceMode, err = session.LinkSource(rawPath, sessionDir)
	}
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		SessionID:          id,
		Game:               game,
		Tag:                tag,
		CreatedAt:          m.now().UTC(),
		SourceVideo:        rawPath,
		SourceVideoLocal:   filepath.Join("source", filepath.Base(rawPath)),
		SourceMode:         sourceMode,
		SegmentDurationSec: media.SegmentDuration(cfg.SegmentStrategy, m.duration()),
	}
	if err := SaveManifest(sessionDir, manifest); err != nil {
		return nil, err
	}

	return &IngestResult{
		SessionID:  id,
		SessionDir: sessionDir,
		SourcePath: sourcePath,
		SourceMode: sourceMode,
	}, nil
}

func (m *Mock) Segment(ctx context.Context, sessionDir string, cfg *jobstore.RunConfig) (int, error) {
	if err := m.failure("segment"); err != nil {
		return 0, err
	}
	manifest, err := LoadManifest(sessionDir)
	if err != nil {
		return 0, err
	}

	ranges := SegmentRanges(m.duration(), manifest.SegmentDurationSec)
	manifest.Segments = manifest.Segments[:0]
	for i, r := range ranges {
		id := SegmentID(i + 1)
		name := fmt.Sprintf("%s_%s.mp4", manifest.SessionID, id)
		path := filepath.Join(sessionDir, "segments", name)
		if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
			return 0, fmt.Errorf("write segment placeholder: %w", err)
		}
		manifest.Segments = append(manifest.Segments, SegmentInfo{
			ID:        id,
			StartTime: r[0],
			EndTime:   r[1],
			VideoPath: filepath.Join("segments", name),
		})
	}
	if err := SaveManifest(sessionDir, manifest); err != nil {
		return 0, err
	}
	return len(manifest.Segments), nil
}

func (m *Mock) Extract(ctx context.Context, sessionDir string, framesPerSegment int) error {
	if err := m.failure("extract"); err != nil {
		return err
	}
	manifest, err := LoadManifest(sessionDir)
	if err != nil {
		return err
	}
	framesDir := filepath.Join(sessionDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return fmt.Errorf("create frames directory: %w", err)
	}
	for _, seg := range manifest.Segments {
		for f := 1; f <= framesPerSegment; f++ {
			name := fmt.Sprintf("%s_f%02d.jpg", seg.ID, f)
			if err := os.WriteFile(filepath.Join(framesDir, name), []byte{}, 0o644); err != nil {
				return fmt.Errorf("write frame placeholder: %w", err)
			}
		}
	}
	return nil
}

func (m *Mock) Analyze(ctx context.Context, sessionDir string, cfg *jobstore.RunConfig) error {
	if err := m.failure("analyze"); err != nil {
		return err
	}
	manifest, err := LoadManifest(sessionDir)
	if err != nil {
		return err
	}

	type fact struct {
		SegmentID string   `json:"segment_id"`
		Facts     []string `json:"facts"`
	}
	facts := make([]fact, 0, len(manifest.Segments))
	for _, seg := range manifest.Segments {
		entries := make([]string, 0, cfg.MaxFacts)
		for i := 1; i <= cfg.MaxFacts; i++ {
			entries = append(entries, fmt.Sprintf("observation %d for %s", i, seg.ID))
		}
		facts = append(facts, fact{SegmentID: seg.ID, Facts: entries})
	}
	return fileutil.WriteJSONAtomic(filepath.Join(sessionDir, "outputs", "facts.json"), facts)
}

func (m *Mock) Transcribe(ctx context.Context, sessionDir string, cfg *jobstore.RunConfig, onProgress ProgressFunc) (*TranscribeResult, error) {
	if err := m.failure("transcribe"); err != nil {
		return nil, err
	}
	manifest, err := LoadManifest(sessionDir)
	if err != nil {
		return nil, err
	}

	total := len(manifest.Segments)
	limit := total
	if cfg.TranscribeLimit > 0 && cfg.TranscribeLimit < total {
		limit = cfg.TranscribeLimit
	}

	start := time.Now()
	type transcript struct {
		SegmentID string `json:"segment_id"`
		Text      string `json:"text"`
	}
	transcripts := make([]transcript, 0, limit)

	done := 0
	for _, seg := range manifest.Segments[:limit] {
		if err := ctx.Err(); err != nil {
			return &TranscribeResult{
				Processed:    done,
				Total:        total,
				SkippedLimit: total - limit,
				ElapsedSec:   time.Since(start).Seconds(),
			}, err
		}
		if m.SegmentDelay > 0 {
			time.Sleep(m.SegmentDelay)
		}
		transcripts = append(transcripts, transcript{
			SegmentID: seg.ID,
			Text:      fmt.Sprintf("transcript for %s", seg.ID),
		})
		done++
		if m.AfterSegment != nil {
			m.AfterSegment(done)
		}
		if onProgress != nil {
			onProgress(done)
		}
	}

	path := filepath.Join(sessionDir, "outputs", "transcripts.json")
	if err := fileutil.WriteJSONAtomic(path, transcripts); err != nil {
		return nil, err
	}
	return &TranscribeResult{
		Processed:    done,
		Total:        total,
		SkippedLimit: total - limit,
		ElapsedSec:   time.Since(start).Seconds(),
	}, nil
}

func (m *Mock) Align(ctx context.Context, sessionDir string, windowSeconds float64) error {
	if err := m.failure("align"); err != nil {
		return err
	}
	manifest, err := LoadManifest(sessionDir)
	if err != nil {
		return err
	}
	type candidate struct {
		SegmentID string  `json:"segment_id"`
		Window    float64 `json:"window_seconds"`
		Quote     string  `json:"quote"`
	}
	candidates := make([]candidate, 0, len(manifest.Segments))
	for _, seg := range manifest.Segments {
		candidates = append(candidates, candidate{
			SegmentID: seg.ID,
			Window:    windowSeconds,
			Quote:     fmt.Sprintf("aligned quote for %s", seg.ID),
		})
	}
	return fileutil.WriteJSONAtomic(filepath.Join(sessionDir, "outputs", "aligned.json"), candidates)
}

func (m *Mock) Compose(ctx context.Context, sessionDir string) (*ComposeResult, error) {
	if err := m.failure("compose"); err != nil {
		return nil, err
	}
	manifest, err := LoadManifest(sessionDir)
	if err != nil {
		return nil, err
	}

	title := session.DisplayTitle(manifest.Game)
	result := &ComposeResult{
		Timeline:   filepath.Join(sessionDir, "outputs", "timeline.md"),
		Overview:   filepath.Join(sessionDir, "outputs", "overview.md"),
		Highlights: filepath.Join(sessionDir, "outputs", "highlights.md"),
	}

	var timeline strings.Builder
	fmt.Fprintf(&timeline, "# %s Timeline\n\n", title)
	for _, seg := range manifest.Segments {
		fmt.Fprintf(&timeline, "- %s (%.0fs-%.0fs)\n", seg.ID, seg.StartTime, seg.EndTime)
	}
	if err := fileutil.WriteFileAtomic(result.Timeline, []byte(timeline.String()), 0o644); err != nil {
		return nil, err
	}

	overview := fmt.Sprintf("# %s Overview\n\nSession %s, %d segments.\n",
		title, manifest.SessionID, len(manifest.Segments))
	if err := fileutil.WriteFileAtomic(result.Overview, []byte(overview), 0o644); err != nil {
		return nil, err
	}

	highlights := fmt.Sprintf("# %s Highlights\n\nNo highlights scored.\n", title)
	if err := fileutil.WriteFileAtomic(result.Highlights, []byte(highlights), 0o644); err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Mock) Verify(ctx context.Context, sessionDir string) (*VerifyReport, error) {
	if err := m.failure("verify"); err != nil {
		return nil, err
	}
	report := &VerifyReport{Passed: true}
	required := []string{
		"manifest.json",
		filepath.Join("outputs", "transcripts.json"),
		filepath.Join("outputs", "timeline.md"),
		filepath.Join("outputs", "overview.md"),
	}
	for _, rel := range required {
		if _, err := os.Stat(filepath.Join(sessionDir, rel)); err != nil {
			report.Passed = false
			report.Problems = append(report.Problems, fmt.Sprintf("missing %s", rel))
		}
	}
	return report, nil
}
