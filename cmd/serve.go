package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"seyon/internal/cache"
	"seyon/internal/config"
	"seyon/internal/database"
	"seyon/internal/janitor"
	"seyon/internal/repositories"
	"seyon/internal/server"
	"seyon/internal/services"
	"seyon/internal/storage"
	"seyon/pkg/rabbitmq"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	shutdownTimeout = 10 * time.Second
	dbRetryInterval = 5 * time.Second
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default command)",
		Args:  cobra.NoArgs,
		RunE:  app.runServe,
	}
}

func (a *App) runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := a.bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	// The server starts even when the database is down; requests fail with
	// 500 until it is reachable and the schema is prepared in the background.
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, database.WithoutPing())
	if err != nil {
		return err
	}
	defer database.Close(db)

	userRepo := repositories.NewGORMUserRepository(db)
	projectRepo := repositories.NewGORMProjectRepository(db)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, log)

	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		log.Warn("ADMIN_USERNAME or ADMIN_PASSWORD not set, admin seeding skipped")
	}
	if err := prepareDatabase(ctx, cfg, db, authService, log); err != nil {
		log.Error("database not ready, retrying in background", zap.Error(err), zap.Duration("interval", dbRetryInterval))
		retryCtx, cancelRetry := context.WithCancel(ctx)
		defer cancelRetry()
		go retryPrepareDatabase(retryCtx, cfg, db, authService, log)
	}

	images, err := storage.NewImageStore(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	// --- Optional list cache ---
	var projectCache services.ProjectCache
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("project list cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			projectCache = cache.NewProjectCache(client, cfg.Redis.TTL, log)
		}
	}

	// --- Optional event publishing ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			log.Warn("project events disabled", zap.Error(err))
		} else {
			defer mqClient.Close()
			publisher = mqClient
		}
	}

	projectService := services.NewProjectService(projectRepo, images, projectCache, publisher, log)

	// --- Orphan image sweep ---
	if cfg.Janitor.Schedule != "" {
		j := janitor.New(images, projectRepo, cfg.Janitor.Grace, log)
		if err := j.Start(cfg.Janitor.Schedule); err != nil {
			return err
		}
		defer j.Stop()
	}

	app := server.NewApp(server.Options{
		UploadDir:      images.Dir(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		AccessLog:      true,
	}, authService, projectService, log)

	// --- Start HTTP Server ---
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.Port), zap.String("upload_dir", images.Dir()))
		errCh <- app.Listen(cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
	return nil
}

// prepareDatabase migrates the schema and seeds the admin user.
func prepareDatabase(ctx context.Context, cfg *config.Config, db *gorm.DB, auth *services.AuthService, log *zap.Logger) error {
	if err := database.Migrate(db.WithContext(ctx)); err != nil {
		return err
	}
	log.Info("database ready", zap.String("driver", cfg.Database.Driver))

	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		return nil
	}
	if _, err := auth.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		return fmt.Errorf("admin seeding failed: %w", err)
	}
	return nil
}

func retryPrepareDatabase(ctx context.Context, cfg *config.Config, db *gorm.DB, auth *services.AuthService, log *zap.Logger) {
	ticker := time.NewTicker(dbRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := prepareDatabase(ctx, cfg, db, auth, log); err != nil {
			log.Warn("database still not ready", zap.Error(err))
			continue
		}
		return
	}
}
