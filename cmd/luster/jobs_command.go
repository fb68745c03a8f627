package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			list, err := client.Jobs(cmd.Context(), statuses)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				detail := job.ErrorMessage
				if detail == "" {
					detail = job.ResultPath
				}
				rows = append(rows, []string{
					job.ID,
					string(job.Status),
					job.OriginalFilename,
					job.CreatedAt.Local().Format(time.RFC3339),
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Job ID", "Status", "File", "Created", "Detail"},
				rows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (received, processing, completed, failed)")
	return cmd
}
