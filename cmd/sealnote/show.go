package main

import (
	"github.com/spf13/cobra"

	"sealnote/internal/api"
	"sealnote/internal/config"
)

func newShowCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note with its encrypted payload and attachments",
		Args:  requireExactlyOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetNote(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if done, err := writeStructured(out, resp); done {
					return err
				}
				return writeNoteDetail(resp)
			})
		},
	}
}
