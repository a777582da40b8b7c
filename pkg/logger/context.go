package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDKey = "X-Request-ID"

// FromContext returns the request-scoped logger placed in the Echo context by
// Middleware, already tagged with the request id minted by the request-id
// middleware. Handlers call this instead of GetLogger so every line they emit
// correlates with the HTTP access log entry for the same request.
func FromContext(c echo.Context) *zap.Logger {
	if scoped, ok := c.Get("logger").(*zap.Logger); ok {
		return scoped
	}

	// Outside the middleware chain (tests, startup) fall back to the global
	// logger, tagging it with whatever request id is available.
	requestID, ok := c.Get(RequestIDKey).(string)
	if !ok || requestID == "" {
		requestID = c.Request().Header.Get(RequestIDKey)
	}
	if requestID == "" {
		requestID = "unknown"
	}

	return GetLogger().With(zap.String("request_id", requestID))
}
