package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	stores []Pinger
}

// NewHealthHandler creates a HealthHandler checking the given stores.
func NewHealthHandler(stores ...Pinger) *HealthHandler {
	return &HealthHandler{stores: stores}
}

// Healthz returns 200 if the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz returns 200 if every backing store is reachable, 503 otherwise.
func (h *HealthHandler) Readyz(c echo.Context) error {
	for _, s := range h.stores {
		if err := s.Ping(c.Request().Context()); err != nil {
			return c.JSON(
				http.StatusServiceUnavailable,
				map[string]string{"status": "unavailable"},
			)
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
