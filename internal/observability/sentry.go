package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"github.com/maputo/user-service/internal/config"
)

// InitSentry enables error reporting. An empty DSN leaves it disabled and
// every capture becomes a no-op.
func InitSentry(cfg config.SentryConfig, app config.AppConfig) error {
	if cfg.DSN == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      app.Env,
		Release:          app.Name + "@" + app.Version,
		AttachStacktrace: true,
	})
}

// FlushSentry waits for buffered events before shutdown.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureRequestError reports err with the request's method and route.
func CaptureRequestError(c *fiber.Ctx, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("method", c.Method())
		scope.SetTag("route", c.Route().Path)
		scope.SetExtra("path", c.Path())
		sentry.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic.
func CapturePanic(c *fiber.Ctx, recovered any, stack []byte) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("method", c.Method())
		scope.SetTag("route", c.Route().Path)
		scope.SetExtra("panic", recovered)
		scope.SetExtra("stack", string(stack))
		sentry.CaptureMessage("panic in request")
	})
}
