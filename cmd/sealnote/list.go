package main

import (
	"time"

	"github.com/spf13/cobra"

	"sealnote/internal/api"
	"sealnote/internal/config"
)

func newListCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List note metadata, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListNotes(cmd.Context())
				if err != nil {
					return err
				}
				if done, err := writeStructured(out, resp); done {
					return err
				}
				return writeNoteList(resp.Notes, time.Now())
			})
		},
	}
}
