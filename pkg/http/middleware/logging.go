package middleware

import (
	"time"

	applogger "MarketWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per completed request.
func RequestLogging(log *applogger.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = applogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			log.Info("http request",
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", req.RemoteAddr),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}
