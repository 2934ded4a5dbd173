package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-arena/internal/middleware"
	"github.com/ashwinyue/next-arena/internal/service"
	"github.com/ashwinyue/next-arena/internal/service/arena"
)

// Handlers 处理器集合
type Handlers struct {
	Auth    *AuthHandler
	Admin   *AdminHandler
	Project *ProjectHandler
	Arena   *ArenaHandler
	Results *ResultsHandler
	System  *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, checks ...HealthCheck) *Handlers {
	return &Handlers{
		Auth:    NewAuthHandler(svc),
		Admin:   NewAdminHandler(svc),
		Project: NewProjectHandler(svc),
		Arena:   NewArenaHandler(svc),
		Results: NewResultsHandler(svc),
		System:  NewSystemHandler(svc.Config, checks...),
	}
}

// identity 当前请求的竞技场身份，未登录时写出 401
func identity(c *gin.Context) (arena.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		Unauthorized(c, "Authentication required")
	}
	return id, ok
}
