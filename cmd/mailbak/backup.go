package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailbak/mailbak/internal/backup"
	"github.com/mailbak/mailbak/internal/searchindex"
)

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Mirror the account into the backup store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flagConfig)
			if err != nil {
				return err
			}
			client, err := a.connect(ctx)
			if err != nil {
				return err
			}
			pageSize := client.MaxObjectsInGet()

			mailboxes, err := backup.Run(ctx, a.logger,
				backup.NewMailboxSource(client, a.store, a.logger), pageSize, newBarSink("mailboxes"))
			if err != nil {
				return err
			}

			var indexer backup.PageIndexer
			if a.cfg.Search.Enabled {
				idx, err := searchindex.Open(a.indexPath())
				if err != nil {
					return fmt.Errorf("opening search index: %w", err)
				}
				defer idx.Close()
				indexer = idx
			}

			emails, err := backup.Run(ctx, a.logger,
				backup.NewEmailSource(client, a.store, indexer, a.logger), pageSize, newBarSink("emails"))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "backed up %d mailboxes and %d emails\n", mailboxes, emails)
			return nil
		},
	}
}
