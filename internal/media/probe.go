// Package media probes recording files with ffprobe and derives the
// segmentation plan used for runtime estimates.
package media

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/services"
)

// Prober extracts container metadata from a recording via ffprobe.
type Prober struct {
	binary string
}

// NewProber returns a prober using the given ffprobe binary name or path.
func NewProber(binary string) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary}
}

type ffprobeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// Probe runs ffprobe against a file and returns its media info. The size
// falls back to a stat call when ffprobe omits it.
func (p *Prober) Probe(ctx context.Context, path string) (*jobstore.MediaInfo, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration,size,format_name",
		"-of", "json",
		path,
	}
	cmd := exec.CommandContext(ctx, p.binary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = ": " + strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, services.Wrap(services.ErrExternalTool, "", "ffprobe", path+detail, err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "", "ffprobe", "unparseable output for "+path, err)
	}

	info := &jobstore.MediaInfo{
		Container: containerFromFormat(parsed.Format.FormatName, path),
	}
	if parsed.Format.Duration != "" {
		if duration, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			info.DurationSec = duration
		}
	}
	if parsed.Format.Size != "" {
		if size, err := strconv.ParseInt(parsed.Format.Size, 10, 64); err == nil {
			info.SizeBytes = size
		}
	}
	if info.SizeBytes == 0 {
		if stat, err := os.Stat(path); err == nil {
			info.SizeBytes = stat.Size()
		}
	}
	return info, nil
}

// containerFromFormat picks a single container name from ffprobe's
// comma-separated format list, preferring the file's own extension when it
// appears there.
func containerFromFormat(formatName, path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	names := strings.Split(formatName, ",")
	for _, name := range names {
		if name == ext {
			return name
		}
	}
	if len(names) > 0 && names[0] != "" {
		return names[0]
	}
	return ext
}
