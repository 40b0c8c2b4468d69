package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/opencourse-api/internal/config"
	"github.com/noah-isme/opencourse-api/internal/handler"
	"github.com/noah-isme/opencourse-api/internal/middleware"
	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ResourceHandler    *handler.ResourceHandler
	InteractionHandler *handler.InteractionHandler
	EngagementHandler  *handler.EngagementHandler
	HistoryHandler     *handler.HistoryHandler
	JWTMiddleware      fiber.Handler
	UploadLimiter      fiber.Handler
	HealthProbes       map[string]handler.Probe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	secured := api.Group("", jwtMiddleware, middleware.RequireRole(
		models.UserRoleVisitor,
		models.UserRoleUser,
		models.UserRoleAdmin,
	))

	if deps.ResourceHandler != nil {
		deps.ResourceHandler.Register(secured, deps.UploadLimiter)
	}
	if deps.InteractionHandler != nil {
		deps.InteractionHandler.Register(secured)
	}
	if deps.EngagementHandler != nil {
		deps.EngagementHandler.Register(secured.Group("/resources"), models.TargetResource)
		deps.EngagementHandler.Register(secured.Group("/interactions"), models.TargetInteraction)
	}
	if deps.HistoryHandler != nil {
		deps.HistoryHandler.Register(secured)
	}
}
