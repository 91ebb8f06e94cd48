package cmd

import (
	"context"
	"fmt"
	"os"

	"seyon/internal/config"
	"seyon/internal/database"
	"seyon/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App carries the flags shared by every command.
type App struct {
	configFile string
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seyon",
		Short:         "Backend for the Seyon solar project portfolio",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          app.runServe,
	}
	cmd.PersistentFlags().StringVar(&app.configFile, "config", "", "optional config file (yaml, json, toml or env)")
	cmd.AddCommand(
		newServeCmd(app),
		newMigrateCmd(app),
		newSeedAdminCmd(app),
		newWatchEventsCmd(app),
	)
	return cmd
}

// bootstrap loads configuration and builds the logger.
func (a *App) bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// openDatabase connects and brings the schema up to date.
func openDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, err
	}
	log.Info("database ready", zap.String("driver", cfg.Database.Driver))
	return db, nil
}

// Execute initializes and runs the root command. It is the single entry point
// for the command-line interface.
func Execute() {
	rootCmd := newRootCmd(&App{})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
