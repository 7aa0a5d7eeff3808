package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mailbak/mailbak/internal/searchindex"
)

func newSearchCmd() *cobra.Command {
	var (
		limit  int
		fields []string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search backed-up emails by subject and body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flagConfig)
			if err != nil {
				return err
			}
			if !a.cfg.Search.Enabled {
				return fmt.Errorf("search is disabled in the configuration")
			}

			idx, err := searchindex.Open(a.indexPath())
			if err != nil {
				return fmt.Errorf("opening search index: %w", err)
			}
			defer idx.Close()

			results, err := idx.Search(args[0], limit, fields)
			if err != nil {
				return err
			}

			shown := fields
			if len(shown) == 0 {
				shown = []string{searchindex.FieldID, searchindex.FieldBlobID, searchindex.FieldSubject}
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				cols := make([]string, 0, len(shown))
				for _, f := range shown {
					switch f {
					case searchindex.FieldID:
						cols = append(cols, r.ID)
					case searchindex.FieldBlobID:
						cols = append(cols, r.BlobID)
					case searchindex.FieldSubject:
						cols = append(cols, r.Subject)
					}
				}
				fmt.Fprintln(out, strings.Join(cols, "\t"))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "result columns (id, blob_id, subject)")
	return cmd
}
