package handler

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-arena/internal/service"
	"github.com/ashwinyue/next-arena/internal/service/dataset"
)

// 上传预览返回的行数
const previewRows = 5

// ProjectHandler 项目处理器
type ProjectHandler struct {
	svc *service.Services
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(svc *service.Services) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// ListProjects 列出项目
// GET /api/v1/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	projects, err := h.svc.Arena.ListProjects(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, projects)
}

// UploadPreview 暂存上传的预览
type UploadPreview struct {
	Token          string      `json:"token"`
	Filename       string      `json:"filename"`
	Columns        []string    `json:"columns"`
	Models         []string    `json:"models"`
	Rows           int         `json:"rows"`
	ValidQuestions int         `json:"valid_questions"`
	Preview        [][]*string `json:"preview"`
}

// StageUpload 解析并暂存 CSV/XLSX，返回一次性令牌和预览
// POST /api/v1/projects/uploads
func (h *ProjectHandler) StageUpload(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required: "+err.Error())
		return
	}
	if limit := h.svc.Config.Server.MaxUploadSize; limit > 0 && fileHeader.Size > limit {
		RequestEntityTooLarge(c, fmt.Sprintf("file exceeds %d bytes", limit))
		return
	}
	if _, err := dataset.Format(fileHeader.Filename); err != nil {
		Error(c, err)
		return
	}

	// 打开文件
	f, err := fileHeader.Open()
	if err != nil {
		Error(c, err)
		return
	}
	defer f.Close()

	raw, err := dataset.Parse(fileHeader.Filename, f)
	if err != nil {
		Error(c, err)
		return
	}

	norm := h.svc.Arena.Normalizer()
	ds, err := norm.Normalize(raw)
	if err != nil {
		Error(c, err)
		return
	}

	pending, err := h.svc.Upload.Stage(c.Request.Context(), id.Username, fileHeader.Filename, ds)
	if err != nil {
		Error(c, err)
		return
	}

	preview := ds.Rows
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}
	Created(c, UploadPreview{
		Token:          pending.Token,
		Filename:       pending.Filename,
		Columns:        ds.Columns,
		Models:         ds.Models(),
		Rows:           ds.NumRows(),
		ValidQuestions: len(norm.ValidRowIndices(ds)),
		Preview:        preview,
	})
}

// CreateProject 用暂存令牌确认上传并创建项目
// POST /api/v1/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req struct {
		Token string `json:"token" binding:"required"`
		Name  string `json:"name" binding:"required,max=200"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	pending, err := h.svc.Upload.Take(c.Request.Context(), id.Username, req.Token)
	if err != nil {
		Error(c, err)
		return
	}

	info, err := h.svc.Arena.CreateProject(c.Request.Context(), id, req.Name, pending.Dataset)
	if err != nil {
		// 创建失败时令牌仍可用于重试
		if rerr := h.svc.Upload.Restore(c.Request.Context(), pending); rerr != nil {
			log.Printf("Warning: failed to restore upload %s: %v", pending.Token, rerr)
		}
		Error(c, err)
		return
	}
	Created(c, info)
}

// DeleteProject 删除项目
// DELETE /api/v1/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.svc.Arena.RemoveProject(c.Request.Context(), id, c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	Success(c, nil)
}
