package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealnote/internal/config"
	"sealnote/internal/store"
)

func newMigrateCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect schema migrations for SQL backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := storeOptions(cfg)

			var (
				status *store.MigrationStatus
				err    error
			)
			if inspect {
				status, err = store.InspectMigrations(cmd.Context(), opts)
			} else {
				status, err = store.Migrate(cmd.Context(), opts)
			}
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			if done, err := writeStructured(out, status); done {
				return err
			}
			return writeMigrationStatus(status, inspect)
		},
	}

	cmd.Flags().BoolVar(&inspect, "inspect", false, "show migration status without applying")
	return cmd
}

func writeMigrationStatus(status *store.MigrationStatus, inspect bool) error {
	_ = writePlain("Backend: %s\n", status.Backend)
	_ = writePlain("Current version: %d\n", status.CurrentVersion)
	_ = writePlain("Available version: %d\n", status.AvailableVersion)
	if len(status.Pending) == 0 {
		if inspect {
			return writePlain("No pending migrations.\n")
		}
		return writePlain("Migrations applied successfully.\n")
	}
	_ = writePlain("Pending migrations: %d\n", len(status.Pending))
	for _, m := range status.Pending {
		if err := writePlain("  %d: %s\n", m.Version, m.Description); err != nil {
			return err
		}
	}
	return nil
}
