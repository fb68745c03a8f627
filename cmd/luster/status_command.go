package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var detailed bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Report whether a job's enhanced image is ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(cmd.OutOrStdout())

			status, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			kind := statusInfo
			if status == "done" {
				kind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Result", kind, status, colorize))

			if !detailed {
				return nil
			}
			job, err := client.Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				fmt.Fprintln(out, renderStatusLine("Registry", statusWarn, "job not found", colorize))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine("Lifecycle", lifecycleKind(job.Status), string(job.Status), colorize))
			if job.ErrorMessage != "" {
				fmt.Fprintln(out, renderStatusLine("Error", statusError, job.ErrorMessage, colorize))
			}
			if job.ResultPath != "" {
				fmt.Fprintln(out, renderStatusLine("Artifact", statusOK, job.ResultPath, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&detailed, "detailed", false, "Include registry lifecycle details")
	return cmd
}
