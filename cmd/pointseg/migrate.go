package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointseg/internal/catalog"
)

var migrateDB string

var migrateCmd = &cobra.Command{
	Use:   "migrate <up|down|version>",
	Short: "Manage the scan catalog schema",
	Long: `Apply, roll back or report the scan catalog schema.

Opening the catalog always migrates up first, so "down" rolls back one
step from the latest version.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := catalog.Open(migrateDB)
		if err != nil {
			return err
		}
		defer store.Close()

		switch args[0] {
		case "up":
		case "down":
			if err := store.MigrateDown(); err != nil {
				return err
			}
		case "version":
		default:
			return fmt.Errorf("unknown migrate action %q", args[0])
		}
		v, dirty, err := store.MigrateVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%v)\n", v, dirty)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDB, "db", "pointseg.db", "scan catalog (SQLite)")
}
