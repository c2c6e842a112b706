package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spec-kit/credential-service/internal/api/http/handlers"
	"github.com/spec-kit/credential-service/internal/auth"
	"github.com/spec-kit/credential-service/internal/observability"
	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// ServerConfig carries the cross-cutting settings of the Fiber app.
type ServerConfig struct {
	AppName        string
	Development    bool
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// NewApp builds the Fiber app with middlewares and routes registered.
func NewApp(sc ServerConfig, routes RouteConfig) *fiber.App {
	logger := sc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               sc.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, sc.Metrics, sc.Development),
	})
	RegisterMiddlewares(app, logger, sc.Metrics, sc.RequestTimeout, sc.Development)
	RegisterRoutes(app, routes)
	return app
}

// RegisterRoutes wires HTTP routes. Anything unmatched, including a known path with the
// wrong method, falls through to a 404.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	app.Post("/register", cfg.Users.Register)
	app.Post("/login", cfg.Users.Login)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	app.Use(func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("Not found")
	})
}
