package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sessionscribe/internal/pipeline"
	"sessionscribe/internal/presets"
	"sessionscribe/internal/worker"
)

func newDrainCommand(ctx *commandContext) *cobra.Command {
	var (
		limit        int
		dryRun       bool
		force        bool
		preset       string
		maxFrames    int
		maxFacts     int
		detailLevel  string
		backend      string
		model        string
		transLimit   int
		transMaxSecs int
		strategy     string
	)

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Process pending jobs through the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			metricsStore, err := ctx.openMetrics()
			if err != nil {
				return err
			}

			if preset != "" {
				cfg.Worker.Preset = preset
			}
			analyzeBackend := cfg.Worker.AnalyzeBackend
			if backend != "" {
				analyzeBackend = backend
			}

			pipe, err := pipeline.ForBackend(analyzeBackend, cfg)
			if err != nil {
				return err
			}

			overrides := presets.Overrides{}
			if cmd.Flags().Changed("max-frames") {
				overrides.MaxFrames = &maxFrames
			}
			if cmd.Flags().Changed("max-facts") {
				overrides.MaxFacts = &maxFacts
			}
			if cmd.Flags().Changed("detail-level") {
				overrides.DetailLevel = &detailLevel
			}
			if cmd.Flags().Changed("analyze-backend") {
				overrides.AnalyzeBackend = &backend
			}
			if cmd.Flags().Changed("transcribe-model") {
				overrides.TranscribeModel = &model
			}
			if cmd.Flags().Changed("transcribe-limit") {
				overrides.TranscribeLimit = &transLimit
			}
			if cmd.Flags().Changed("transcribe-max-seconds") {
				overrides.TranscribeMaxSeconds = &transMaxSecs
			}
			if cmd.Flags().Changed("segment-strategy") {
				overrides.SegmentStrategy = &strategy
			}

			w := worker.New(cfg, store, pipe, metricsStore, logger)

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			result, err := w.Drain(runCtx, worker.DrainOptions{
				Limit:     limit,
				DryRun:    dryRun,
				Force:     force,
				Overrides: overrides,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"processed %d: %d succeeded, %d failed, %d cancelled, %d skipped\n",
				result.Processed, result.Succeeded, result.Failed, result.Cancelled, result.Skipped)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Max jobs to process (0 = all pending)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List jobs that would run without processing")
	cmd.Flags().BoolVar(&force, "force", false, "Recompute stage outputs even when cached")
	cmd.Flags().StringVar(&preset, "preset", "", "Preset to apply (fast or quality)")
	cmd.Flags().IntVar(&maxFrames, "max-frames", 0, "Frames analyzed per segment")
	cmd.Flags().IntVar(&maxFacts, "max-facts", 0, "Facts kept per segment")
	cmd.Flags().StringVar(&detailLevel, "detail-level", "", "Analysis detail level")
	cmd.Flags().StringVar(&backend, "analyze-backend", "", "Analyze backend (mock, claude, gemini_3pro, open_ocr)")
	cmd.Flags().StringVar(&model, "transcribe-model", "", "ASR model name")
	cmd.Flags().IntVar(&transLimit, "transcribe-limit", 0, "Max segments to transcribe")
	cmd.Flags().IntVar(&transMaxSecs, "transcribe-max-seconds", 0, "Time budget for transcription")
	cmd.Flags().StringVar(&strategy, "segment-strategy", "", "Segment strategy (auto, short, medium, long)")

	return cmd
}
