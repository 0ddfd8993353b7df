package presets_test

import (
	"testing"

	"sessionscribe/internal/config"
	"sessionscribe/internal/presets"
)

func TestFastPresetValues(t *testing.T) {
	def, err := presets.Get("fast")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if def.MaxFrames != 3 || def.MaxFacts != 3 || def.DetailLevel != "L1" {
		t.Fatalf("unexpected fast analyze settings: %+v", def)
	}
	if def.TranscribeBackend != "whisper_local" || def.TranscribeModel != "base" {
		t.Fatalf("unexpected fast transcribe backend: %+v", def)
	}
	if def.TranscribeCompute != "int8" || def.TranscribeBeamSize != 1 || !def.TranscribeVADFilter {
		t.Fatalf("unexpected fast transcribe tuning: %+v", def)
	}
}

func TestQualityPresetValues(t *testing.T) {
	def, err := presets.Get("quality")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if def.MaxFrames != 6 || def.MaxFacts != 5 || def.DetailLevel != "L1" {
		t.Fatalf("unexpected quality analyze settings: %+v", def)
	}
	if def.TranscribeModel != "small" || def.TranscribeCompute != "float32" || def.TranscribeBeamSize != 5 {
		t.Fatalf("unexpected quality transcribe tuning: %+v", def)
	}
}

func TestUnknownPresetRejected(t *testing.T) {
	if _, err := presets.Get("turbo"); err == nil {
		t.Fatal("expected unknown preset to be rejected")
	}
}

func TestResolvePrecedence(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.TranscribeLimit = 20

	maxFrames := 9
	model := "large-v3"
	rc, err := presets.Resolve("fast", presets.Overrides{
		MaxFrames:       &maxFrames,
		TranscribeModel: &model,
	}, &cfg)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Explicit overrides beat the preset.
	if rc.MaxFrames != 9 {
		t.Fatalf("override lost: max_frames = %d", rc.MaxFrames)
	}
	if rc.TranscribeModel != "large-v3" {
		t.Fatalf("override lost: model = %s", rc.TranscribeModel)
	}
	// Untouched fields keep preset defaults.
	if rc.MaxFacts != 3 {
		t.Fatalf("preset default lost: max_facts = %d", rc.MaxFacts)
	}
	// Global config fills fields presets do not cover.
	if rc.TranscribeLimit != 20 {
		t.Fatalf("global default lost: transcribe_limit = %d", rc.TranscribeLimit)
	}
}

func TestResolveFallsBackToConfigPreset(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.Preset = "quality"

	rc, err := presets.Resolve("", presets.Overrides{}, &cfg)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rc.Preset != "quality" || rc.MaxFrames != 6 {
		t.Fatalf("expected quality defaults, got %+v", rc)
	}
}
