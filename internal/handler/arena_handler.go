package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-arena/internal/service"
)

// ArenaHandler 投票流程处理器
type ArenaHandler struct {
	svc *service.Services
}

// NewArenaHandler 创建投票流程处理器
func NewArenaHandler(svc *service.Services) *ArenaHandler {
	return &ArenaHandler{svc: svc}
}

// Select 选择项目
// POST /api/v1/projects/:id/select
func (h *ArenaHandler) Select(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	res, err := h.svc.Arena.Select(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, res)
}

// Next 获取下一个比较
// GET /api/v1/projects/:id/comparison
func (h *ArenaHandler) Next(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	view, err := h.svc.Arena.Next(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, view)
}

// Vote 投票
// POST /api/v1/projects/:id/votes
func (h *ArenaHandler) Vote(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req struct {
		ComparisonID string `json:"comparison_id" binding:"required"`
		Choice       string `json:"choice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	res, err := h.svc.Arena.Vote(c.Request.Context(), id, c.Param("id"), req.ComparisonID, req.Choice)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, res)
}

// Redo 重置自己的副本
// POST /api/v1/projects/:id/redo
func (h *ArenaHandler) Redo(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	res, err := h.svc.Arena.Redo(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, res)
}

// Finish 结束投票并报告是否完成
// POST /api/v1/projects/:id/finish
func (h *ArenaHandler) Finish(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	res, err := h.svc.Arena.Finish(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, res)
}
