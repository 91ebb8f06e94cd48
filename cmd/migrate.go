package cmd

import (
	"errors"
	"fmt"

	"seyon/internal/database"
	"seyon/internal/repositories"
	"seyon/internal/services"

	"github.com/spf13/cobra"
)

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := app.bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := openDatabase(cfg, log)
			if err != nil {
				return err
			}
			return database.Close(db)
		},
	}
}

func newSeedAdminCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin user from ADMIN_USERNAME and ADMIN_PASSWORD if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := app.bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
				return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set")
			}

			db, err := openDatabase(cfg, log)
			if err != nil {
				return err
			}
			defer database.Close(db)

			authService := services.NewAuthService(repositories.NewGORMUserRepository(db), cfg.JWTSecret, cfg.TokenTTL, log)
			created, err := authService.SeedAdmin(cmd.Context(), cfg.Admin.Username, cfg.Admin.Password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin user %s created\n", cfg.Admin.Username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin user %s already exists\n", cfg.Admin.Username)
			}
			return nil
		},
	}
}
