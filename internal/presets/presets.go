// Package presets defines the named processing presets and the override
// precedence that turns a job into an effective, typed run configuration.
package presets

import (
	"fmt"
	"strings"

	"sessionscribe/internal/config"
	"sessionscribe/internal/jobstore"
)

// Heuristic seconds-per-segment used for runtime estimates when no calibrated
// throughput rate exists yet.
const (
	FastSecondsPerSegment    = 3
	QualitySecondsPerSegment = 8
)

// Definition holds the stage parameters a preset contributes.
type Definition struct {
	MaxFrames           int
	MaxFacts            int
	DetailLevel         string
	TranscribeBackend   string
	TranscribeModel     string
	TranscribeCompute   string
	TranscribeBeamSize  int
	TranscribeVADFilter bool
	SecondsPerSegment   int
}

var definitions = map[string]Definition{
	"fast": {
		MaxFrames:           3,
		MaxFacts:            3,
		DetailLevel:         "L1",
		TranscribeBackend:   "whisper_local",
		TranscribeModel:     "base",
		TranscribeCompute:   "int8",
		TranscribeBeamSize:  1,
		TranscribeVADFilter: true,
		SecondsPerSegment:   FastSecondsPerSegment,
	},
	"quality": {
		MaxFrames:           6,
		MaxFacts:            5,
		DetailLevel:         "L1",
		TranscribeBackend:   "whisper_local",
		TranscribeModel:     "small",
		TranscribeCompute:   "float32",
		TranscribeBeamSize:  5,
		TranscribeVADFilter: true,
		SecondsPerSegment:   QualitySecondsPerSegment,
	},
}

// Names returns the known preset names.
func Names() []string {
	return []string{"fast", "quality"}
}

// Get returns the definition for a preset name.
func Get(name string) (Definition, error) {
	def, ok := definitions[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Definition{}, fmt.Errorf("unknown preset %q", name)
	}
	return def, nil
}

// Overrides carries job-explicit values that take precedence over preset
// defaults. Nil fields fall through to the preset.
type Overrides struct {
	MaxFrames            *int
	MaxFacts             *int
	DetailLevel          *string
	AnalyzeBackend       *string
	TranscribeModel      *string
	TranscribeCompute    *string
	TranscribeBeamSize   *int
	TranscribeLimit      *int
	TranscribeMaxSeconds *int
	SegmentStrategy      *string
}

// Resolve builds the effective run configuration for a job from, in
// precedence order: explicit job overrides, preset defaults, then global
// config defaults.
func Resolve(preset string, overrides Overrides, cfg *config.Config) (jobstore.RunConfig, error) {
	preset = strings.ToLower(strings.TrimSpace(preset))
	if preset == "" && cfg != nil {
		preset = cfg.Worker.Preset
	}
	if preset == "" {
		preset = "fast"
	}
	def, err := Get(preset)
	if err != nil {
		return jobstore.RunConfig{}, err
	}

	rc := jobstore.RunConfig{
		Preset:              preset,
		MaxFrames:           def.MaxFrames,
		MaxFacts:            def.MaxFacts,
		DetailLevel:         def.DetailLevel,
		TranscribeBackend:   def.TranscribeBackend,
		TranscribeModel:     def.TranscribeModel,
		TranscribeCompute:   def.TranscribeCompute,
		TranscribeBeamSize:  def.TranscribeBeamSize,
		TranscribeVADFilter: def.TranscribeVADFilter,
		SegmentStrategy:     "auto",
		SourceMode:          "link",
	}

	if cfg != nil {
		rc.AnalyzeBackend = cfg.Worker.AnalyzeBackend
		rc.TranscribeLimit = cfg.Worker.TranscribeLimit
		rc.TranscribeMaxSeconds = cfg.Worker.TranscribeMaxSeconds
		rc.FramesPerSegment = cfg.Worker.FramesPerSegment
		rc.AlignWindowSeconds = cfg.Worker.AlignWindowSeconds
	}
	if rc.AnalyzeBackend == "" {
		rc.AnalyzeBackend = "mock"
	}
	if rc.FramesPerSegment <= 0 {
		rc.FramesPerSegment = 6
	}
	if rc.AlignWindowSeconds <= 0 {
		rc.AlignWindowSeconds = 1.5
	}

	if overrides.MaxFrames != nil {
		rc.MaxFrames = *overrides.MaxFrames
	}
	if overrides.MaxFacts != nil {
		rc.MaxFacts = *overrides.MaxFacts
	}
	if overrides.DetailLevel != nil {
		rc.DetailLevel = *overrides.DetailLevel
	}
	if overrides.AnalyzeBackend != nil {
		rc.AnalyzeBackend = *overrides.AnalyzeBackend
	}
	if overrides.TranscribeModel != nil {
		rc.TranscribeModel = *overrides.TranscribeModel
	}
	if overrides.TranscribeCompute != nil {
		rc.TranscribeCompute = *overrides.TranscribeCompute
	}
	if overrides.TranscribeBeamSize != nil {
		rc.TranscribeBeamSize = *overrides.TranscribeBeamSize
	}
	if overrides.TranscribeLimit != nil {
		rc.TranscribeLimit = *overrides.TranscribeLimit
	}
	if overrides.TranscribeMaxSeconds != nil {
		rc.TranscribeMaxSeconds = *overrides.TranscribeMaxSeconds
	}
	if overrides.SegmentStrategy != nil {
		rc.SegmentStrategy = *overrides.SegmentStrategy
	}

	return rc, nil
}
