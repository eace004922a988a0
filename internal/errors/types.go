package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	ErrCodeInternalServer  ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeInvalidConfig   ErrorCode = "INVALID_CONFIG"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeUploadFailed    ErrorCode = "UPLOAD_FAILED"
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	HTTPCode int       `json:"-"`
	Cause    error     `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewNotFound 构造资源不存在错误
func NewNotFound(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf(format, args...),
		HTTPCode: http.StatusNotFound,
	}
}

// NewInvalidConfig 构造配置错误（启动期致命）
func NewInvalidConfig(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidConfig,
		Message:  fmt.Sprintf(format, args...),
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewExternalService 构造外部服务调用错误
func NewExternalService(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:     ErrCodeExternalService,
		Message:  fmt.Sprintf(format, args...),
		HTTPCode: http.StatusBadGateway,
	}
}

// NewBadRequest 构造请求参数错误
func NewBadRequest(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:     ErrCodeBadRequest,
		Message:  fmt.Sprintf(format, args...),
		HTTPCode: http.StatusBadRequest,
	}
}

// IsNotFound 判断是否为资源不存在错误
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeNotFound
	}
	return false
}

// HTTPStatus 提取错误对应的HTTP状态码，非AppError一律按500处理
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPCode != 0 {
		return appErr.HTTPCode
	}
	return http.StatusInternalServerError
}
