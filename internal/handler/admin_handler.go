package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-arena/internal/service"
	"github.com/ashwinyue/next-arena/internal/service/auth"
)

// AdminHandler 超级管理员处理器
type AdminHandler struct {
	svc *service.Services
}

// NewAdminHandler 创建管理员处理器
func NewAdminHandler(svc *service.Services) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListUsers 列出全部用户
// GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.svc.Auth.ListUsers(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, users)
}

// AddUser 添加用户
// POST /api/v1/admin/users
func (h *AdminHandler) AddUser(c *gin.Context) {
	var req auth.AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	user, err := h.svc.Auth.AddUser(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, user.ToUserInfo())
}

// DeleteUser 删除用户及其项目副本
// DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.svc.Auth.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	Success(c, nil)
}

// ResetPassword 重置用户密码
// PUT /api/v1/admin/users/:id/password
func (h *AdminHandler) ResetPassword(c *gin.Context) {
	var req struct {
		NewPassword string `json:"new_password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	if err := h.svc.Auth.ResetPassword(c.Request.Context(), c.Param("id"), req.NewPassword); err != nil {
		Error(c, err)
		return
	}
	Success(c, nil)
}

// ResetAll 删除全部项目和参与者副本
// POST /api/v1/admin/reset
func (h *AdminHandler) ResetAll(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.svc.Arena.ResetAll(c.Request.Context(), id); err != nil {
		Error(c, err)
		return
	}
	Success(c, nil)
}
