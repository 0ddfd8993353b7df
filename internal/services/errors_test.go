package services_test

import (
	"errors"
	"fmt"
	"testing"

	"sessionscribe/internal/services"
)

func TestWrapTagsWithMarker(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "transcribe", "whisper", "model crashed", cause)

	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("wrapped error lost its marker")
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error lost its cause")
	}
	want := "external tool error: transcribe: whisper: model crashed: exit status 1"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "analyze", "", "backend unavailable", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"ingestion", services.Wrap(services.ErrIngestion, "ingest", "", "raw file unavailable", nil), "ingestion"},
		{"external tool", services.Wrap(services.ErrExternalTool, "", "ffprobe", "exit status 1", nil), "external_tool"},
		{"configuration", services.Wrap(services.ErrConfiguration, "", "", "unknown preset", nil), "configuration"},
		{"unmarked", errors.New("broken pipe"), "transient"},
		{"wrapped deep", fmt.Errorf("drain: %w", services.Wrap(services.ErrExternalTool, "", "", "whisper crashed", nil)), "external_tool"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStageMessageStripsSentinelPrefix(t *testing.T) {
	err := services.Wrap(services.ErrExternalTool, "", "", "API timeout", nil)
	if got := services.StageMessage("analyze", err); got != "analyze: API timeout" {
		t.Fatalf("StageMessage = %q", got)
	}
}

func TestStageMessageDoesNotDoubleStage(t *testing.T) {
	err := errors.New("compose: template missing")
	if got := services.StageMessage("compose", err); got != "compose: template missing" {
		t.Fatalf("StageMessage = %q", got)
	}
}

func TestStageMessageNilError(t *testing.T) {
	if got := services.StageMessage("verify", nil); got != "verify: failed without error detail" {
		t.Fatalf("StageMessage = %q", got)
	}
}
