package util

import (
	"course_player_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// ErrorStatus 服务层错误对应的 HTTP 状态码
func ErrorStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidSequence),
		errors.Is(err, ErrInvalidStepPayload),
		errors.Is(err, ErrInvalidAnswer),
		errors.Is(err, ErrInvalidPeriod),
		errors.Is(err, ErrInvalidFile),
		errors.Is(err, ErrEmailRegistered):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrContentLocked):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// HandleServiceError 将服务层错误映射为 HTTP 响应
func HandleServiceError(c *gin.Context, err error) {
	HandleServiceErrorWithData(c, err, nil)
}

// HandleServiceErrorWithData 出错时仍需返回数据（如重排失败后的原顺序）
func HandleServiceErrorWithData(c *gin.Context, err error, data interface{}) {
	code := ErrorStatus(err)
	message := err.Error()
	switch code {
	case http.StatusInternalServerError:
		logger.Log.Error("Internal server error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		message = "Internal server error"
	case http.StatusForbidden:
		message = "Forbidden"
	}
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}
