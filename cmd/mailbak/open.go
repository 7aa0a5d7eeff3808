package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailbak/mailbak/internal/storage"
)

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <blob-id>",
		Short: "Write a backed-up raw message to standard output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flagConfig)
			if err != nil {
				return err
			}
			data, err := a.store.Read(cmd.Context(), storage.BlobPath(args[0]))
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no backed-up message with blob id %s", args[0])
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
