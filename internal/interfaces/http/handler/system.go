package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qcdash/backend/internal/interfaces/http/dto"
)

// HealthCheck checks one dependency
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthResponse reports service health
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// SystemHandler serves the root banner and health checks
type SystemHandler struct {
	BaseHandler
	checks  []HealthCheck
	timeout time.Duration
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(checks ...HealthCheck) *SystemHandler {
	return &SystemHandler{checks: checks, timeout: 3 * time.Second}
}

// Root godoc
// @ID           root
// @Summary      Banner
// @Tags         system
// @Produce      plain
// @Success      200 {string} string
// @Router       / [get]
func (h *SystemHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, "Quality Control Dashboard API is running...")
}

// Health godoc
// @ID           health
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Checks: make(map[string]string, len(h.checks)), Timestamp: time.Now()}
	status := http.StatusOK
	for _, hc := range h.checks {
		if err := hc.Check(ctx); err != nil {
			resp.Checks[hc.Name] = "unhealthy: " + err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[hc.Name] = "healthy"
	}
	c.JSON(status, resp)
}

// NoRoute answers unknown paths with the error envelope
func (h *SystemHandler) NoRoute(c *gin.Context) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Route "+c.Request.URL.Path+" not found")
}
