package main

import (
	"fmt"

	"ledger/internal/config"
	"ledger/internal/storage"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appCfg.DataBackend != config.BackendSQLite {
				return fmt.Errorf("migrate needs DATA_BACKEND=%s, got %q", config.BackendSQLite, appCfg.DataBackend)
			}
			version, err := storage.RunMigrations(appCfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			logger.Info("Schema up to date", "path", appCfg.SQLiteDBPath, "version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}
