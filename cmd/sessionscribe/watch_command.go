package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/pipeline"
	"sessionscribe/internal/watcher"
	"sessionscribe/internal/worker"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		dirs       []string
		mode       string
		interval   int
		autoRun    bool
		batchLimit int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan raw directories and queue new recordings",
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

			if len(dirs) > 0 {
				cfg.Paths.RawDirs = dirs
			}
			if mode != "" {
				cfg.Watcher.Mode = mode
			}
			if interval > 0 {
				cfg.Watcher.PollInterval = interval
			}
			if cmd.Flags().Changed("auto-run") {
				cfg.Watcher.AutoRun = autoRun
			}
			if batchLimit > 0 {
				cfg.Watcher.AutoRunBatchLimit = batchLimit
			}

			opts := []watcher.Option{
				watcher.WithEnricher(newEnricher(cfg, metricsStore)),
				watcher.WithDryRun(dryRun),
			}
			if cfg.Watcher.AutoRun && !dryRun {
				pipe, err := pipeline.ForBackend(cfg.Worker.AnalyzeBackend, cfg)
				if err != nil {
					return err
				}
				w := worker.New(cfg, store, pipe, metricsStore, logger)
				opts = append(opts, watcher.WithTrigger(func(job *jobstore.Job) error {
					return w.ProcessOne(cmd.Context(), job.JobID)
				}))
			}

			watch := watcher.New(cfg, store, logger, opts...)
			scheduler := watcher.NewScheduler(cfg, watch, logger)

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			if cfg.Watcher.Mode == watcher.ModeOnce {
				result, err := watch.ScanOnce()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "found %d, queued %d, skipped %d\n",
					result.Found, result.Queued, result.Skipped)
				return nil
			}
			return scheduler.Run(runCtx)
		},
	}

	cmd.Flags().StringArrayVar(&dirs, "dir", nil, "Raw directory to scan (repeatable; overrides config)")
	cmd.Flags().StringVar(&mode, "mode", "", "Scan mode: once, interval, or event")
	cmd.Flags().IntVar(&interval, "interval", 0, "Poll interval in seconds for interval mode")
	cmd.Flags().BoolVar(&autoRun, "auto-run", false, "Process newly queued jobs immediately")
	cmd.Flags().IntVar(&batchLimit, "batch-limit", 0, "Max jobs processed per auto-run trigger")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be queued without writing")

	return cmd
}
