package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailbak/mailbak/internal/restore"
)

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <email-id>...",
		Short: "Import backed-up emails back onto the account",
		Long: `Import the named emails from the backup onto the JMAP account.
Mailboxes the emails reference that no longer exist on the server are
recreated first, parents before children. The server assigns new ids;
the backup itself is never modified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flagConfig)
			if err != nil {
				return err
			}
			client, err := a.connect(ctx)
			if err != nil {
				return err
			}

			res, err := restore.NewEngine(client, a.store, a.logger).Restore(ctx, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d emails, recreated %d mailboxes\n",
				res.EmailsImported, res.MailboxesCreated)
			return nil
		},
	}
}
