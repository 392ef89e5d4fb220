package main

import (
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/marketing-simulator/internal/config"
	"github.com/magabrotheeeer/marketing-simulator/internal/migrations"
	"github.com/magabrotheeeer/marketing-simulator/internal/storage/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := repository.New(cmd.Context(), cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			return err
		}

		v, dirty, err := migrations.Version(db.DB, cfg.MigrationsPath)
		if err != nil {
			return err
		}
		cmd.Printf("schema version %d (dirty: %t)\n", v, dirty)
		return nil
	},
}
