package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/pipeline"
)

func TestIngestHonorsCopySourceMode(t *testing.T) {
	rawPath := filepath.Join(t.TempDir(), "stardew_farm-tour.mp4")
	if err := os.WriteFile(rawPath, []byte("video-bytes"), 0o644); err != nil {
		t.Fatalf("write raw file: %v", err)
	}

	m := &pipeline.Mock{SessionsDir: t.TempDir()}
	cfg := &jobstore.RunConfig{SegmentStrategy: "auto", SourceMode: "copy"}

	result, err := m.Ingest(context.Background(), rawPath, "stardew", "farm-tour", cfg)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.SourceMode != "copy" {
		t.Fatalf("expected copy source mode, got %q", result.SourceMode)
	}

	// A copy must be a distinct file, not a hard link to the raw capture.
	copied, err := os.Stat(result.SourcePath)
	if err != nil {
		t.Fatalf("stat copied source: %v", err)
	}
	if copied.Size() != int64(len("video-bytes")) {
		t.Fatalf("unexpected copied size: %d", copied.Size())
	}
	if err := os.Remove(rawPath); err != nil {
		t.Fatalf("remove raw file: %v", err)
	}
	if _, err := os.Stat(result.SourcePath); err != nil {
		t.Fatalf("copy must survive raw file removal: %v", err)
	}
}
