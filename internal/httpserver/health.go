package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/opsmind/auth/pkg/logging"
)

const (
	ServiceName = "OpsMind Authentication Service"
	Version     = "1.0.0"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHTTP struct {
	DB  Pinger
	Now func() time.Time
}

func (h *HealthHTTP) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *HealthHTTP) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"status":    "ok",
		"message":   "Auth service is running",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHTTP) Live(c echo.Context) error { return c.NoContent(http.StatusOK) }

func (h *HealthHTTP) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			logging.FromContext(ctx).With("handler", "health_ready").Warn("not_ready", "status", 503, "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
	}
	return c.NoContent(http.StatusOK)
}

func (h *HealthHTTP) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": ServiceName,
		"version": Version,
		"endpoints": echo.Map{
			"auth": echo.Map{
				"signup":    "POST /auth/signup",
				"login":     "POST /auth/login",
				"verifyOTP": "POST /auth/verify-otp",
				"resendOTP": "POST /auth/resend-otp",
			},
			"admin": echo.Map{
				"createUser":       "POST /admin/users",
				"getUsers":         "GET /admin/users",
				"deleteUser":       "DELETE /admin/users/:id",
				"updateUserStatus": "PATCH /admin/users/:id/status",
				"createTechnician": "POST /admin/technicians",
				"getTechnicians":   "GET /admin/technicians",
				"createBuilding":   "POST /admin/buildings",
				"getBuildings":     "GET /admin/buildings",
			},
			"health":  "GET /health",
			"metrics": "GET /metrics",
		},
	})
}
