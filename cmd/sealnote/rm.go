package main

import (
	"errors"

	"github.com/spf13/cobra"

	"sealnote/internal/api"
	"sealnote/internal/config"
)

func newRmCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a note and its attachments",
		Args:  requireExactlyOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.DeleteNote(cmd.Context(), args[0])
				if force && errors.Is(err, api.ErrNotFound) {
					if done, err := writeStructured(out, api.DeleteResponse{OK: false}); done {
						return err
					}
					return writePlain("%s not found; nothing deleted\n", idColor(args[0]))
				}
				if err != nil {
					return err
				}
				if done, err := writeStructured(out, resp); done {
					return err
				}
				return writePlain("deleted %s\n", idColor(args[0]))
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "succeed when the note does not exist")
	return cmd
}
