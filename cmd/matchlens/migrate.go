package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"matchlens/ingest-service/internal/db"
)

func newMigrateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate requires the postgres storage driver, got %q", cfg.Storage.Driver)
			}

			v, err := db.Migrate(cfg.Database.URL)
			if err != nil {
				return err
			}
			logger.Info("database schema up to date", "version", v)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return nil
		},
	}
}
