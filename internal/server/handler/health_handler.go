package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/transcribe-hub/internal/healthcheck"
)

// HealthHandler 存活与就绪探针
type HealthHandler struct {
	checker *healthcheck.HealthChecker
}

// NewHealthHandler 创建 HealthHandler；checker 为 nil 时只报告存活
func NewHealthHandler(checker *healthcheck.HealthChecker) *HealthHandler {
	if checker == nil {
		checker = healthcheck.NewHealthChecker("")
	}
	return &HealthHandler{checker: checker}
}

// Liveness godoc
// @Summary Liveness 检查
// @Description 服务存活检查，用于 Kubernetes liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} healthcheck.CheckResult
// @Router /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, h.checker.LivenessCheck())
}

// Readiness godoc
// @Summary Readiness 检查
// @Description 检查 PostgreSQL 与 Redis（若启用）是否可用
// @Tags Health
// @Produce json
// @Success 200 {object} healthcheck.CheckResult
// @Failure 503 {object} healthcheck.CheckResult
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	result := h.checker.ReadinessCheck(c.Request.Context())
	status := http.StatusOK
	if result.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}
