package handler

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-arena/internal/service"
	"github.com/ashwinyue/next-arena/internal/service/arena"
	"github.com/ashwinyue/next-arena/internal/service/export"
)

// ResultsHandler 结果与导出处理器
type ResultsHandler struct {
	svc *service.Services
}

// NewResultsHandler 创建结果处理器
func NewResultsHandler(svc *service.Services) *ResultsHandler {
	return &ResultsHandler{svc: svc}
}

// ListResults 可见项目的参与者结果
// GET /api/v1/results
func (h *ResultsHandler) ListResults(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	results, err := h.svc.Arena.Results(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, results)
}

// DeleteScore 删除参与者的分数
// DELETE /api/v1/results/:participant_id
func (h *ResultsHandler) DeleteScore(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.svc.Arena.DeleteScore(c.Request.Context(), id, c.Param("participant_id")); err != nil {
		Error(c, err)
		return
	}
	Success(c, nil)
}

// ExportSummary 导出汇总表
// GET /api/v1/projects/:id/export/summary?format=csv|xlsx
func (h *ResultsHandler) ExportSummary(c *gin.Context) {
	h.export(c, "results", export.Summary)
}

// ExportDetailed 导出逐票明细
// GET /api/v1/projects/:id/export/detailed?format=csv|xlsx
func (h *ResultsHandler) ExportDetailed(c *gin.Context) {
	h.export(c, "detailed_results", export.Detailed)
}

func (h *ResultsHandler) export(c *gin.Context, prefix string, build func(*arena.ExportSet) *export.Table) {
	id, ok := identity(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		Error(c, err)
		return
	}

	data, err := h.svc.Arena.ExportData(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, build(data), format); err != nil {
		Error(c, err)
		return
	}

	filename := export.Filename(prefix, data.ProjectName, format)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
