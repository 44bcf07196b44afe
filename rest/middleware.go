package rest

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"content-radar/logger"
)

// RequestLogger logs one line per request through the shared slog logger.
func RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			}
			if v.Error != nil {
				logger.Logger.Error("request failed", append(attrs, "error", v.Error)...)
			} else {
				logger.Logger.Info("request", attrs...)
			}
			return nil
		},
	})
}
