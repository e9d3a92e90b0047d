package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sealnote/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	out := &outputFlags{}
	var logLevel string

	cmd := &cobra.Command{
		Use:           "sealnote",
		Short:         "Sealnote stores client-encrypted notes and attachments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&out.json, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&out.yaml, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newListCmd(cfg, out),
		newShowCmd(cfg, out),
		newPutCmd(cfg, out),
		newRmCmd(cfg, out),
		newInfoCmd(cfg, out),
		newMigrateCmd(cfg, out),
		newConfigCmd(cfg),
	)

	return cmd
}
