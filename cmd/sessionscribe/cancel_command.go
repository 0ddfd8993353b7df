package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Request cancellation of a job",
		Long: "Sets the cancel flag on a job. The worker observes the flag at the " +
			"next stage boundary; cancelling an already-finished job has no effect.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			job, err := store.RequestCancel(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s: status=%s cancel_requested=%t\n",
				job.JobID, job.Status, job.CancelRequested)
			return nil
		},
	}
}
