package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"sessionscribe/internal/fileutil"
)

// SegmentInfo describes one clip of the source recording. Times are seconds
// from the start of the recording; VideoPath is relative to the session
// directory.
type SegmentInfo struct {
	ID        string  `json:"id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	VideoPath string  `json:"video_path"`
}

// Manifest is the per-session record of what was ingested and how it was
// segmented. It lives at the session directory root and is rewritten
// atomically as stages add to it.
type Manifest struct {
	SessionID          string        `json:"session_id"`
	Game               string        `json:"game"`
	Tag                string        `json:"tag"`
	CreatedAt          time.Time     `json:"created_at"`
	SourceVideo        string        `json:"source_video"`
	SourceVideoLocal   string        `json:"source_video_local"`
	SourceMode         string        `json:"source_mode,omitempty"`
	SegmentDurationSec int           `json:"segment_duration_seconds"`
	Segments           []SegmentInfo `json:"segments,omitempty"`
}

// ManifestPath returns the manifest location for a session directory.
func ManifestPath(sessionDir string) string {
	return filepath.Join(sessionDir, "manifest.json")
}

// SaveManifest atomically rewrites the session manifest.
func SaveManifest(sessionDir string, m *Manifest) error {
	if err := fileutil.WriteJSONAtomic(ManifestPath(sessionDir), m); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the session manifest.
func LoadManifest(sessionDir string) (*Manifest, error) {
	var m Manifest
	if err := fileutil.ReadJSON(ManifestPath(sessionDir), &m); err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	return &m, nil
}

// SegmentID formats the 1-based segment index, such as "part_0001".
func SegmentID(index int) string {
	return fmt.Sprintf("part_%04d", index)
}

// SegmentRanges splits a total duration into fixed-length ranges; the final
// range is truncated to the recording's end.
func SegmentRanges(totalDuration float64, segmentDuration int) [][2]float64 {
	var ranges [][2]float64
	for start := 0.0; start < totalDuration; {
		end := start + float64(segmentDuration)
		if end > totalDuration {
			end = totalDuration
		}
		ranges = append(ranges, [2]float64{start, end})
		start = end
	}
	return ranges
}
