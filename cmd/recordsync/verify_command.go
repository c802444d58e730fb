package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/herbadis/recordsync/pkg/render"
)

func newVerifyCommand() *cobra.Command {
	var expect int

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Parse a rendered record list and report its entries",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return &usageError{err: err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			entries, err := render.ParseEntries(file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d entries\n", args[0], len(entries))
			missingTitle := 0
			for _, e := range entries {
				if e.Title == "" {
					missingTitle++
				}
			}
			if missingTitle > 0 {
				fmt.Fprintf(out, "%d entries without a title\n", missingTitle)
			}

			if cmd.Flags().Changed("expect") && len(entries) != expect {
				return &render.RenderError{Err: fmt.Errorf("found %d entries, expected %d", len(entries), expect)}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&expect, "expect", 0, "Fail unless the file holds exactly this many entries")
	return cmd
}
