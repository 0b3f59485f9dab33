package middleware

import (
	"time"

	applogger "SignalDeck/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs every request at debug level and requests slower than
// slow at warn level. A nil logger disables it.
func RequestLogging(l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l == nil {
				return next(c)
			}
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			latency := time.Since(start)
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency_ms", latency),
			}
			if slow > 0 && latency >= slow {
				l.Warn("http request slow", fields...)
			} else {
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
