package main

import (
	"github.com/spf13/cobra"

	"sessionscribe/internal/daemon"
	"sessionscribe/internal/pipeline"
	"sessionscribe/internal/watcher"
	"sessionscribe/internal/worker"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run watcher and worker together as a daemon",
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
			pipe, err := pipeline.ForBackend(cfg.Worker.AnalyzeBackend, cfg)
			if err != nil {
				return err
			}

			w := worker.New(cfg, store, pipe, metricsStore, logger)
			watch := watcher.New(cfg, store, logger,
				watcher.WithEnricher(newEnricher(cfg, metricsStore)))
			scheduler := watcher.NewScheduler(cfg, watch, logger)

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			return daemon.New(cfg, scheduler, w, logger).Run(runCtx)
		},
	}
}
