package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-arena/internal/repository"
	"github.com/ashwinyue/next-arena/internal/service/arena"
	"github.com/ashwinyue/next-arena/internal/service/auth"
	"github.com/ashwinyue/next-arena/internal/service/dataset"
	"github.com/ashwinyue/next-arena/internal/service/export"
	"github.com/ashwinyue/next-arena/internal/service/upload"
)

// ========== API 响应格式 ==========

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Created 创建成功响应 (201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Msg: msg})
}

// Unauthorized 401 错误响应
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Code: 401, Msg: msg})
}

// Forbidden 403 错误响应
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, ErrorResponse{Code: 403, Msg: msg})
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Msg: msg})
}

// Conflict 409 错误响应
func Conflict(c *gin.Context, msg string) {
	c.JSON(http.StatusConflict, ErrorResponse{Code: 409, Msg: msg})
}

// RequestEntityTooLarge 413 错误响应
func RequestEntityTooLarge(c *gin.Context, msg string) {
	c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Code: 413, Msg: msg})
}

// InternalServerError 500 错误响应
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Msg: msg})
}

// Error 根据错误类型返回相应的错误响应
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, arena.ErrInvalidDataset),
		errors.Is(err, arena.ErrInvalidChoice),
		errors.Is(err, arena.ErrInvalidRequest),
		errors.Is(err, dataset.ErrUnsupportedFormat),
		errors.Is(err, dataset.ErrEmptyFile),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, auth.ErrMissingField):
		BadRequest(c, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(c, err.Error())
	case errors.Is(err, arena.ErrForbidden),
		errors.Is(err, auth.ErrProtectedUser):
		Forbidden(c, err.Error())
	case errors.Is(err, arena.ErrUnknownProject),
		errors.Is(err, arena.ErrUnknownUserState),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, upload.ErrUploadNotFound),
		errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, arena.ErrProjectExists),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, repository.ErrVersionConflict),
		errors.Is(err, repository.ErrDuplicate):
		Conflict(c, err.Error())
	default:
		_ = c.Error(err)
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		InternalServerError(c, "internal server error")
	}
}
