package main

import (
	"github.com/spf13/cobra"

	"sealnote/internal/api"
	"sealnote/internal/config"
)

func newInfoCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server storage info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				if done, err := writeStructured(out, resp); done {
					return err
				}
				return writeInfo(resp)
			})
		},
	}
}
