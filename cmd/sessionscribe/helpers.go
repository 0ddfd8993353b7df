package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"sessionscribe/internal/config"
	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/media"
	"sessionscribe/internal/metrics"
)

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// newEnricher probes queued recordings and stamps segment and runtime
// estimates onto the job before it is persisted. Probe failures leave the
// job unenriched; estimates are a convenience, not a requirement.
func newEnricher(cfg *config.Config, metricsStore *metrics.Store) func(*jobstore.Job) {
	prober := media.NewProber(cfg.FFprobeBinary())
	return func(job *jobstore.Job) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		info, err := prober.Probe(ctx, job.RawPath)
		if err != nil {
			return
		}
		job.Media = info

		segmentDuration, count := media.PlanSegments(media.StrategyAuto, info.DurationSec)
		if count == 0 {
			return
		}
		preset := job.Preset
		if preset == "" {
			preset = cfg.Worker.Preset
		}
		job.EstimatedSegments = count
		job.EstimatedRuntimeSec = metricsStore.EstimateRuntime(count, preset, segmentDuration)
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
