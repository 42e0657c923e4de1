package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and dependency readiness. A nil Redis
// client means the cache is disabled, which does not fail readiness.
type HealthHandler struct {
	db      Pinger
	rdb     *redis.Client
	started time.Time
}

func NewHealthHandler(db Pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, started: time.Now()}
}

type check struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthReport struct {
	Status string           `json:"status"`
	Checks map[string]check `json:"checks"`
	Uptime string           `json:"uptime"`
}

func (h *HealthHandler) checks(ctx context.Context) (map[string]check, bool) {
	out := map[string]check{}
	healthy := true
	if err := h.db.PingContext(ctx); err != nil {
		out["database"] = check{Status: "unhealthy", Error: err.Error()}
		healthy = false
	} else {
		out["database"] = check{Status: "healthy"}
	}
	switch {
	case h.rdb == nil:
		out["cache"] = check{Status: "disabled"}
	default:
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			out["cache"] = check{Status: "unhealthy", Error: err.Error()}
			healthy = false
		} else {
			out["cache"] = check{Status: "healthy"}
		}
	}
	return out, healthy
}

// Health godoc
// @Summary Dependency health report
// @Tags health
// @Produce json
// @Success 200 {object} healthReport
// @Failure 503 {object} healthReport
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	checks, healthy := h.checks(ctx)
	rep := healthReport{Status: "healthy", Checks: checks, Uptime: time.Since(h.started).Round(time.Second).String()}
	status := http.StatusOK
	if !healthy {
		rep.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, rep)
}

// Ready answers 200 only when every dependency responds.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if _, healthy := h.checks(ctx); !healthy {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// Live only proves the process is serving.
func (h *HealthHandler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "alive"})
}
