package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/progress"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the job queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsList(ctx, cmd, "")
		},
	}

	var statusFilter string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsList(ctx, cmd, statusFilter)
		},
	}
	listCmd.Flags().StringVar(&statusFilter, "status", "", "Only show jobs with this status")

	showCmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsShow(ctx, cmd, args[0])
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(showCmd)
	return cmd
}

func runJobsList(ctx *commandContext, cmd *cobra.Command, statusFilter string) error {
	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	jobs, err := store.List()
	if err != nil {
		return err
	}

	var filter jobstore.Status
	if statusFilter != "" {
		parsed, ok := jobstore.ParseStatus(statusFilter)
		if !ok {
			return fmt.Errorf("unknown status %q", statusFilter)
		}
		filter = parsed
	}

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		if filter != "" && job.Status != filter {
			continue
		}
		status := string(job.Status)
		if job.CancelRequested && !job.IsTerminal() {
			status += " (cancel requested)"
		}
		segments := "-"
		if job.EstimatedSegments > 0 {
			segments = strconv.Itoa(job.EstimatedSegments)
		}
		rows = append(rows, []string{
			job.JobID,
			status,
			job.GameOrDefault(),
			segments,
			formatTimestamp(job.CreatedAt),
		})
	}

	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no jobs")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"JOB", "STATUS", "GAME", "SEGMENTS", "CREATED"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func runJobsShow(ctx *commandContext, cmd *cobra.Command, jobID string) error {
	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	job, err := store.Load(jobID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:        %s\n", job.JobID)
	fmt.Fprintf(out, "Status:     %s\n", job.Status)
	fmt.Fprintf(out, "Cancel:     %t\n", job.CancelRequested)
	fmt.Fprintf(out, "Raw path:   %s\n", job.RawPath)
	fmt.Fprintf(out, "Game:       %s\n", job.GameOrDefault())
	fmt.Fprintf(out, "Tag:        %s\n", job.TagOrDefault())
	fmt.Fprintf(out, "Preset:     %s\n", job.Preset)
	fmt.Fprintf(out, "Created:    %s\n", formatTimestamp(job.CreatedAt))
	fmt.Fprintf(out, "Updated:    %s\n", formatTimestamp(job.UpdatedAt))
	if job.SessionID != "" {
		fmt.Fprintf(out, "Session:    %s\n", job.SessionID)
	}
	if job.Media != nil {
		fmt.Fprintf(out, "Media:      %.1fs, %d bytes, %s\n",
			job.Media.DurationSec, job.Media.SizeBytes, job.Media.Container)
	}
	if job.EstimatedSegments > 0 {
		fmt.Fprintf(out, "Estimate:   %d segments, ~%s\n",
			job.EstimatedSegments, progress.FormatDuration(float64(job.EstimatedRuntimeSec)))
	}
	if job.Error != "" {
		fmt.Fprintf(out, "Error:      %s\n", job.Error)
	}
	if job.Outputs != nil && job.Outputs.SessionDir != "" {
		fmt.Fprintf(out, "Outputs:    %s\n", job.Outputs.SessionDir)
		if snapshot, err := progress.Read(job.Outputs.SessionDir); err == nil {
			renderProgress(out, job, snapshot)
		}
	}
	return nil
}

// renderProgress prints heartbeat state, treating the job's terminal status
// as authoritative over a possibly-stale heartbeat.
func renderProgress(out io.Writer, job *jobstore.Job, snapshot *progress.Snapshot) {
	if job.IsTerminal() {
		fmt.Fprintf(out, "Progress:   %s (%d/%d)\n", job.Status, snapshot.Done, snapshot.Total)
		return
	}
	line := fmt.Sprintf("Progress:   %s %d/%d", snapshot.Stage, snapshot.Done, snapshot.Total)
	if snapshot.EtaSec != nil {
		line += ", ETA " + progress.FormatDuration(*snapshot.EtaSec)
	}
	fmt.Fprintln(out, line)
}
