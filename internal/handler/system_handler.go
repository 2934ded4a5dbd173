package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-arena/internal/config"
	"github.com/ashwinyue/next-arena/internal/service/dataset"
)

// HealthCheck 依赖健康检查
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// SystemHandler 系统处理器
type SystemHandler struct {
	cfg    *config.Config
	checks []HealthCheck
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(cfg *config.Config, checks ...HealthCheck) *SystemHandler {
	return &SystemHandler{cfg: cfg, checks: checks}
}

// Health 健康检查，任一依赖不可用时返回 503
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			deps[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[check.Name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "dependencies": deps})
}

// GetSystemInfo 获取系统信息
// GET /api/v1/system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	Success(c, gin.H{
		"name":               h.cfg.App.Name,
		"version":            h.cfg.App.Version,
		"environment":        h.cfg.App.Environment,
		"supported_formats":  dataset.SupportedFormats(),
		"max_model_columns":  h.cfg.Arena.MaxModelColumns,
		"min_question_words": h.cfg.Arena.MinQuestionWords,
		"max_upload_size":    h.cfg.Server.MaxUploadSize,
	})
}
