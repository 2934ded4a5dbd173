package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-arena/internal/handler"
	"github.com/ashwinyue/next-arena/internal/middleware"
	"github.com/ashwinyue/next-arena/internal/model"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, validator middleware.TokenValidator) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())

	// 健康检查
	r.GET("/health", h.System.Health)

	requireAuth := middleware.RequireAuth(validator)
	editors := middleware.RequireRole(model.RoleEditor, model.RoleSuperAdmin)
	superadmin := middleware.RequireRole(model.RoleSuperAdmin)

	// API v1
	v1 := r.Group("/api/v1")
	{
		v1.GET("/system/info", h.System.GetSystemInfo)

		// Auth 认证
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/signup", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/refresh", h.Auth.RefreshToken)
			authGroup.POST("/change-password", h.Auth.ChangePassword)
			authGroup.POST("/logout", requireAuth, h.Auth.Logout)
			authGroup.GET("/me", requireAuth, h.Auth.GetCurrentUser)
			authGroup.PUT("/password", requireAuth, h.Auth.ChangeOwnPassword)
		}

		// Admin 用户管理
		admin := v1.Group("/admin", requireAuth, superadmin)
		{
			admin.GET("/users", h.Admin.ListUsers)
			admin.POST("/users", h.Admin.AddUser)
			admin.DELETE("/users/:id", h.Admin.DeleteUser)
			admin.PUT("/users/:id/password", h.Admin.ResetPassword)
			admin.POST("/reset", h.Admin.ResetAll)
		}

		// Project 项目与投票
		projects := v1.Group("/projects", requireAuth)
		{
			projects.GET("", h.Project.ListProjects)
			projects.POST("/uploads", editors, h.Project.StageUpload)
			projects.POST("", editors, h.Project.CreateProject)
			projects.DELETE("/:id", editors, h.Project.DeleteProject)

			projects.POST("/:id/select", h.Arena.Select)
			projects.GET("/:id/comparison", h.Arena.Next)
			projects.POST("/:id/votes", h.Arena.Vote)
			projects.POST("/:id/redo", h.Arena.Redo)
			projects.POST("/:id/finish", h.Arena.Finish)

			projects.GET("/:id/export/summary", editors, h.Results.ExportSummary)
			projects.GET("/:id/export/detailed", editors, h.Results.ExportDetailed)
		}

		// Results 结果
		results := v1.Group("/results", requireAuth, editors)
		{
			results.GET("", h.Results.ListResults)
			results.DELETE("/:participant_id", h.Results.DeleteScore)
		}
	}

	return r
}
