package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var contentTypeExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

func newResultCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Download the enhanced image for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			data, contentType, err := client.Result(cmd.Context(), args[0])
			if errors.Is(err, ErrResultNotReady) {
				return fmt.Errorf("result for %s is not ready yet", args[0])
			}
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outputPath)
			if target == "" {
				ext := contentTypeExtensions[contentType]
				if ext == "" {
					ext = ".png"
				}
				target = args[0] + ext
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d bytes to %s\n", len(data), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file (defaults to <job-id>.<ext>)")
	return cmd
}
