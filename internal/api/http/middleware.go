package http

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/credential-service/internal/api/dto"
	"github.com/spec-kit/credential-service/internal/observability"
	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as logging, recovery and body checks.
// The request logger sits outermost so it renders every error through the app's error handler.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration, development bool) {
	app.Use(requestid.New())
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: development,
		StackTraceHandler: func(c *fiber.Ctx, r any) {
			logger.Error("panic recovered", zap.Any("panic", r), zap.Stack("stack"))
		},
	}))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(jsonBodyMiddleware())
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// jsonBodyMiddleware rejects any non-empty body that is not valid JSON, before routing.
func jsonBodyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if body := c.Body(); len(body) > 0 && !json.Valid(body) {
			return apperrors.NewInvalidJSON()
		}
		return c.Next()
	}
}

// ErrorHandler maps errors onto the {errors:[{field?,message}]} body. Internal causes are
// logged with their text only in development; production logs carry the error code.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics, development bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		domainErr := toDomainError(err)
		metrics.RecordError(routeOf(c), c.Method(), domainErr.Code)

		if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
			fields := []zap.Field{
				zap.String("code", domainErr.Code),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			}
			if development {
				fields = append(fields, zap.Error(err))
			}
			logger.Error("operation_failed", fields...)
		}

		return c.Status(domainErr.HTTPStatus).JSON(dto.ErrorResponse{Errors: domainErr.Body()})
	}
}

// toDomainError also folds Fiber's own routing and parsing errors into the taxonomy.
func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			return apperrors.ToDomainError(apperrors.NewNotFound("Not found"))
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			return apperrors.ToDomainError(apperrors.NewInvalidJSON())
		default:
			if fiberErr.Code < fiber.StatusInternalServerError {
				return apperrors.NewDomainError("HTTP_ERROR", fiberErr.Message, fiberErr.Code)
			}
		}
	}
	return apperrors.ToDomainError(err)
}

func routeOf(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
		return r.Path
	}
	return "unmatched"
}
