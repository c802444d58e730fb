package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "recordsync",
		Short:         "Render a Discogs collection into a static record list",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newFoldersCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
