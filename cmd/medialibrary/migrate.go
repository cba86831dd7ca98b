package main

import (
	"github.com/spf13/cobra"

	persistence "github.com/narwhalmedia/medialibrary/internal/infrastructure/persistence/gorm"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/repository"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the library schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, closeDB, err := persistence.NewDB(cfg.Database, cfg.Library.StorageRoot, log.Zap())
		if err != nil {
			return err
		}
		defer closeDB()

		log.Info("Running database migrations...", interfaces.String("driver", cfg.Database.Driver))
		if err := repository.NewGormRepository(db, log).Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("Migrations complete")
		return nil
	},
}
