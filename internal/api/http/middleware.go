package http

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/maputo/user-service/internal/api/dto"
	"github.com/maputo/user-service/internal/observability"
	apperrors "github.com/maputo/user-service/pkg/util/errorutil"
)

// NoMappingMessage answers requests for unknown routes.
const NoMappingMessage = "There is no mapping for this URL"

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", stack))
				observability.CapturePanic(c, r, stack)
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				err = writeError(c, err, logger, metrics)
			}
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, err error, logger *zap.Logger, metrics *observability.Metrics) error {
	status, code, message := resolveError(err)
	metrics.RecordError(c.Route().Path, c.Method(), code)

	if status >= fiber.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		observability.CaptureRequestError(c, err)
	}
	return c.Status(status).JSON(dto.NewHTTPResponse(status, message))
}

func resolveError(err error) (status int, code, message string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		message = fe.Message
		if fe.Code == fiber.StatusNotFound {
			message = NoMappingMessage
		}
		return fe.Code, "HTTP_" + fmt.Sprint(fe.Code), message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusServiceUnavailable, "TIMEOUT", "request timed out"
	}
	domainErr := apperrors.ToDomainError(err)
	return domainErr.HTTPStatus, domainErr.Code, domainErr.Message
}
