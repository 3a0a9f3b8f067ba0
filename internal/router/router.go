package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-proof-api/internal/config"
	"github.com/noah-isme/gema-proof-api/internal/handler"
	"github.com/noah-isme/gema-proof-api/internal/middleware"
	"github.com/noah-isme/gema-proof-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ValidationHandler *handler.DocumentValidationHandler
	// ValidationLimiter guards the paid inference path; nil disables limiting.
	ValidationLimiter fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.ValidationHandler == nil {
		return
	}

	var limiters []fiber.Handler
	if deps.ValidationLimiter != nil {
		limiters = append(limiters, deps.ValidationLimiter)
	}

	// Path used by the existing upload flow.
	deps.ValidationHandler.Register(app.Group("/functions/v1/validate-document"), limiters...)
	deps.ValidationHandler.Register(api.Group("/validate-document"), limiters...)
	deps.ValidationHandler.RegisterStatus(api.Group("/validation-materials"))
}

// ValidationLimiter builds the rate limiter configured for the validation trigger.
func ValidationLimiter(cfg config.Config) fiber.Handler {
	if cfg.ValidationRateLimit <= 0 {
		return nil
	}
	return middleware.RateLimit("validate-document", cfg.ValidationRateLimit, cfg.ValidationRateWindow)
}
