package utils

import (
	"errors"
	"net/http"

	"scamazon_go/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 业务状态码
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误信息
}

// 业务状态码常量
const (
	CodeSuccess             = 20000 // 成功
	CodeError               = 40000 // 错误
	CodeUnauthorized        = 40100 // 未授权
	CodeForbidden           = 40300 // 禁止访问
	CodeNotFound            = 40400 // 资源不存在
	CodeConflict            = 40900 // 资源已存在
	CodeInventoryConflict   = 40910 // 库存已变化，可刷新后重试
	CodeAlreadyDelivered    = 40920 // 订单已发货，不可再退货或发货
	CodeValidationError     = 42200 // 验证错误
	CodeTooManyRequests     = 42900 // 请求过于频繁
	CodeInternalServerError = 50000 // 内部错误
)

// 业务状态码对应的消息
var codeMessages = map[int]string{
	CodeSuccess:             "操作成功",
	CodeError:               "操作失败",
	CodeUnauthorized:        "未授权，请重新登录",
	CodeForbidden:           "禁止访问",
	CodeNotFound:            "资源不存在",
	CodeConflict:            "资源已存在",
	CodeInventoryConflict:   "库存已变化",
	CodeAlreadyDelivered:    "订单已发货",
	CodeValidationError:     "参数验证失败",
	CodeTooManyRequests:     "请求过于频繁",
	CodeInternalServerError: "服务器内部错误",
}

// GetCodeMessage 获取状态码对应的消息
func GetCodeMessage(code int) string {
	if msg, exists := codeMessages[code]; exists {
		return msg
	}
	return "未知错误"
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: GetCodeMessage(CodeSuccess),
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: GetCodeMessage(CodeSuccess),
		Data:    data,
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, status, code int, message string) {
	if message == "" {
		message = GetCodeMessage(code)
	}
	c.JSON(status, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 请求参数错误
func BadRequest(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		ValidationFailed(c, formatValidationErrors(validationErrors))
		return
	}
	c.JSON(http.StatusBadRequest, Response{
		Code:    CodeError,
		Message: GetCodeMessage(CodeError),
		Error:   err.Error(),
	})
}

// ValidationFailed 验证错误响应
func ValidationFailed(c *gin.Context, ve *ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, Response{
		Code:    CodeValidationError,
		Message: GetCodeMessage(CodeValidationError),
		Data:    ve.Errors,
	})
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, CodeForbidden, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// InternalError 内部错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternalServerError, message)
}

// RespondError 将服务层错误映射为HTTP响应
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, services.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInventoryConflict):
		Error(c, http.StatusConflict, CodeInventoryConflict, err.Error())
	case errors.Is(err, services.ErrAlreadyDelivered):
		Error(c, http.StatusConflict, CodeAlreadyDelivered, err.Error())
	case errors.Is(err, services.ErrDuplicateISBN),
		errors.Is(err, services.ErrUserExists):
		Error(c, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidPayment),
		errors.Is(err, services.ErrInvalidListing):
		Error(c, http.StatusUnprocessableEntity, CodeValidationError, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrTokenRevoked):
		Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrTooManyAttempts):
		Error(c, http.StatusTooManyRequests, CodeTooManyRequests, err.Error())
	default:
		// 内部错误不把细节返回给前端
		InternalError(c, "")
	}
}
