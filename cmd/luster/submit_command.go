package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <image>...",
		Short: "Upload one or more images for enhancement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			entries, err := client.Submit(cmd.Context(), args)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				detail := entry.Message
				if entry.Error != "" {
					detail = entry.Error
				}
				rows = append(rows, []string{entry.Filename, entry.JobID, entry.Status, detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"File", "Job ID", "Status", "Detail"},
				rows,
				nil,
			))
			return nil
		},
	}
}
