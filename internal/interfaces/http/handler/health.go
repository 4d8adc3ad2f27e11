package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/solarfin/backend/internal/infrastructure/logger"
	"github.com/solarfin/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	checks  map[string]Pinger
	timeout time.Duration
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler. Nil dependencies are skipped,
// which is how an instance without an audit database is reported.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	h := &HealthHandler{
		checks:  make(map[string]Pinger, len(checks)),
		timeout: 2 * time.Second,
		now:     time.Now,
	}
	for name, p := range checks {
		if p != nil {
			h.checks[name] = p
		}
	}
	return h
}

// HealthResponse is the probe payload
type HealthResponse struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live godoc
// @ID           liveness
// @Summary      Liveness check
// @Description  Reports that the process is serving
// @Tags         health
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *HealthHandler) Live(c *gin.Context) {
	h.Success(c, HealthResponse{Status: "healthy", Time: h.now().Format(time.RFC3339)})
}

// Ready godoc
// @ID           readiness
// @Summary      Readiness check
// @Description  Pings every dependency and answers 503 if any is down
// @Tags         health
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} APIResponse[HealthResponse]
// @Router       /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ready", Time: h.now().Format(time.RFC3339), Checks: map[string]string{}}
	healthy := true
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			logger.L(ctx).Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "error"
			healthy = false
			continue
		}
		resp.Checks[name] = "ok"
	}

	if !healthy {
		resp.Status = "unavailable"
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
		return
	}
	h.Success(c, resp)
}
