package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailbak/mailbak/internal/checkpoint"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backup progress from the stored checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flagConfig)
			if err != nil {
				return err
			}

			offset, err := checkpoint.LoadOffset(ctx, a.store, checkpoint.Mailboxes)
			if err != nil {
				return err
			}
			watermark, err := checkpoint.LoadWatermark(ctx, a.store, checkpoint.Emails)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "account: %s\n", a.cfg.Name)
			fmt.Fprintf(out, "mailboxes backed up: %d\n", offset.Position)
			if watermark.LastProcessedDate.After(time.Unix(0, 0)) {
				fmt.Fprintf(out, "emails backed up through: %s\n",
					watermark.LastProcessedDate.UTC().Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "emails backed up through: never")
			}
			return nil
		},
	}
}
