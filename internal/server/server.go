// Package server assembles the Fiber application.
package server

import (
	"time"

	"seyon/internal/handlers"
	"seyon/internal/middleware"
	"seyon/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// multipartOverhead is the room left for form fields and boundaries on top
// of the largest accepted image.
const multipartOverhead = 1 << 20

// Options configures NewApp.
type Options struct {
	UploadDir      string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AccessLog      bool
}

// NewApp builds the HTTP application: the JSON API under /api, uploaded
// images under /uploads, plus /health and /metrics.
func NewApp(opts Options, authService *services.AuthService, projectService *services.ProjectService, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "seyon",
		BodyLimit:             int(opts.MaxUploadBytes) + multipartOverhead,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	// --- Middleware ---
	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New())
	app.Use(middleware.Metrics())

	// --- Static images ---
	app.Static("/uploads", opts.UploadDir, fiber.Static{
		MaxAge: 3600,
	})

	// --- API Routes ---
	api := app.Group("/api")
	handlers.NewAuthHandler(authService, log).RegisterRoutes(api)
	handlers.NewProjectHandler(projectService, log).RegisterRoutes(api, middleware.AuthRequired(authService, log))

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

// errorHandler renders errors that escape the handlers (unknown routes,
// oversized bodies, panics) in the same {msg} shape as the API.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Server Error"
		if fe, ok := err.(*fiber.Error); ok {
			code = fe.Code
			msg = fe.Message
		} else {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"msg": msg})
	}
}
