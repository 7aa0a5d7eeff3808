// Package main implements the mailbak command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagConfig string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mailbak",
		Short:         "Incremental JMAP mail backup with restore and search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the configuration file")

	root.AddCommand(
		newBackupCmd(),
		newRestoreCmd(),
		newSearchCmd(),
		newOpenCmd(),
		newStatusCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mailbak:", err)
		os.Exit(1)
	}
}
