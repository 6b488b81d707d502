// Package server assembles the fiber application.
package server

import (
	"errors"
	"log/slog"
	"time"

	"katalog/internal/handlers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the handlers and settings the application is built from.
type Deps struct {
	AppName        string
	Products       *handlers.ProductHandler
	Units          *handlers.UnitHandler
	Lookups        *handlers.LookupHandler
	MetricsEnabled bool
	RequestLog     bool
	Log            *slog.Logger
}

// NewApp wires middleware and routes. Admin routes live under /admin/v1 and
// the storefront mirror is unprefixed.
func NewApp(d Deps) *fiber.App {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:      d.AppName,
		ErrorHandler: errorHandler(log),
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	if d.RequestLog {
		app.Use(logger.New())
	}

	admin := app.Group("/admin/v1")
	admin.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"ok":   true,
			"app":  d.AppName,
			"time": time.Now().UTC().Format(time.RFC3339),
		})
	})
	d.Units.RegisterRoutes(admin)
	d.Products.RegisterRoutes(admin)
	d.Lookups.RegisterRoutes(admin)

	d.Products.RegisterPublicRoutes(app)

	if d.MetricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	return app
}

// errorHandler answers errors no handler turned into a response, such as
// unknown routes and recovered panics.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Server Error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"message": message})
	}
}
