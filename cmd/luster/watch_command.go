package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow live status events for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(cmd.OutOrStdout())

			return client.Watch(cmd.Context(), args[0], func(evt streamEvent) {
				switch evt.Name {
				case "connection_response":
					fmt.Fprintln(out, renderStatusLine("Connected", statusInfo, args[0], colorize))
				case "status_update":
					var update struct {
						Status string `json:"status"`
						Result string `json:"result_reference"`
						Error  string `json:"error"`
					}
					if err := json.Unmarshal([]byte(evt.Data), &update); err != nil {
						return
					}
					kind := statusInfo
					message := update.Status
					switch update.Status {
					case "completed":
						kind = statusOK
						if update.Result != "" {
							message = fmt.Sprintf("completed (%s)", update.Result)
						}
					case "failed":
						kind = statusError
						if update.Error != "" {
							message = fmt.Sprintf("failed: %s", update.Error)
						}
					}
					fmt.Fprintln(out, renderStatusLine("Status", kind, message, colorize))
				}
			})
		},
	}
}
