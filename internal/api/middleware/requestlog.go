package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = "X-Request-ID"

// probePaths are hit continuously by orchestrators and the Prometheus
// scraper. Logging every probe would drown the real API traffic, so
// repeated successful probes are collapsed.
var probePaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
	"/metrics": {},
}

// RequestLog returns Echo middleware that emits one structured log line per
// request and threads a request ID through header and context. Probe paths
// are de-duplicated: a successful probe is logged only when its status
// differs from the previous hit, while a failing probe logs at Warn every
// time.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var mu sync.Mutex
	lastProbeStatus := make(map[string]int)

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

			status := c.Response().Status
			path := c.Request().URL.Path

			level := slog.LevelInfo
			if _, probe := probePaths[path]; probe {
				healthy := status < http.StatusBadRequest

				mu.Lock()
				repeat := lastProbeStatus[path] == status
				lastProbeStatus[path] = status
				mu.Unlock()

				if healthy && repeat {
					return err
				}
				if !healthy {
					level = slog.LevelWarn
				}
			}

			log.Log(c.Request().Context(), level, "request",
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"bytes", c.Response().Size,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			)

			return err
		}
	}
}
