// Package middleware provides Echo middleware for the sellerscope API.
package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = "X-Request-ID"

// probePaths get success-suppressed logging: the first success is
// logged, repeats are dropped, and any failure logs at WARN. Kubernetes
// probes hit these every few seconds and would otherwise dominate the log.
var probePaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
}

// RequestLog returns Echo middleware that logs each request with
// structured fields. It generates a request ID if none is provided and
// propagates it through the response header and echo context.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var mu sync.Mutex
	probeLogged := make(map[string]bool)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			c.Set("request_id", reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			path := c.Request().URL.Path
			status := c.Response().Status
			ok := status >= 200 && status < 300

			if _, probe := probePaths[path]; probe {
				mu.Lock()
				suppressed := ok && probeLogged[path]
				probeLogged[path] = ok
				mu.Unlock()

				if suppressed {
					return err
				}
			}

			attrs := []any{
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			}

			switch {
			case status >= 500:
				log.Warn("request", attrs...)
			default:
				log.Info("request", attrs...)
			}

			return err
		}
	}
}
