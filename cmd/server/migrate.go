package main

import (
	"errors"

	"github.com/spf13/cobra"

	"waypoint/internal/platform/config"
	"waypoint/internal/platform/postgres"
)

func migrateCommand(load func() (*config.Config, error)) *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url is not set")
			}
			log := newLogger(cfg)
			ctx := cmd.Context()

			db, err := postgres.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if rollback {
				version, err := postgres.Rollback(ctx, db)
				if err != nil {
					return err
				}
				log.Info("migration rolled back", "version", version)
				return nil
			}

			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				return err
			}
			log.Info("migrations applied", "versions", applied)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the most recent migration instead")
	return cmd
}
