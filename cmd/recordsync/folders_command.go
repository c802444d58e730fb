package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/herbadis/recordsync/pkg/client"
	"github.com/herbadis/recordsync/pkg/collection"
	"github.com/herbadis/recordsync/pkg/config"
)

func newFoldersCommand() *cobra.Command {
	var f commonFlags

	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List the collection folders of a user",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			if err := setupLogging(cmd, cfg); err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Discogs.Username) == "" {
				return &config.Error{Code: config.CodeMissingUsername, Field: "discogs.username", Message: "username is required"}
			}
			if strings.TrimSpace(cfg.Discogs.Token) == "" {
				return &config.Error{Code: config.CodeMissingToken, Field: "discogs.token", Message: "token is required"}
			}

			clientCfg := client.DefaultConfig(cfg.Discogs.Token, cfg.Discogs.UserAgent)
			clientCfg.BaseURL = cfg.Discogs.BaseURL
			c, err := client.New(clientCfg)
			if err != nil {
				return &config.Error{Code: config.CodeInvalidValue, Field: "discogs", Message: err.Error()}
			}

			folders, err := collection.NewAPI(c).ListFolders(cmd.Context(), cfg.Discogs.Username)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tRECORDS")
			for _, folder := range folders {
				fmt.Fprintf(w, "%d\t%s\t%d\n", folder.ID, folder.Name, folder.Count)
			}
			return w.Flush()
		},
	}
	f.register(cmd.Flags())
	return cmd
}
