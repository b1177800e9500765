package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 定义错误代码类型
type ErrorCode string

// 错误代码常量
const (
	// 通用错误
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimit    ErrorCode = "RATE_LIMIT"

	// 数据库错误
	ErrCodeDBConnection ErrorCode = "DB_CONNECTION_ERROR"
	ErrCodeDBQuery      ErrorCode = "DB_QUERY_ERROR"

	// 缓存错误
	ErrCodeCacheOperation ErrorCode = "CACHE_OPERATION_ERROR"
	ErrCodeCacheMiss      ErrorCode = "CACHE_MISS"

	// 行情面板错误
	ErrCodePanelEmpty   ErrorCode = "PANEL_EMPTY"
	ErrCodePanelNoDate  ErrorCode = "PANEL_DATE_MISSING"
	ErrCodeBarsMissing  ErrorCode = "BARS_MISSING"

	// 指数计算错误
	ErrCodeBaseDateOutOfRange ErrorCode = "BASE_DATE_OUT_OF_RANGE"
	ErrCodeAnchorMissing      ErrorCode = "ANCHOR_DATE_MISSING"
	ErrCodeZeroWeightSum      ErrorCode = "ZERO_WEIGHT_SUM"
)

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFound, ErrCodePanelNoDate, ErrCodeBarsMissing:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeInvalidInput, ErrCodeBaseDateOutOfRange, ErrCodeAnchorMissing, ErrCodeZeroWeightSum, ErrCodePanelEmpty:
		return http.StatusBadRequest
	case ErrCodeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf 创建带格式化详情的应用错误
func Newf(code ErrorCode, message, detailsFormat string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: fmt.Sprintf(detailsFormat, args...),
	}
}

// Wrap 包装底层错误
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// CodeOf 提取错误代码；非 AppError 返回 ErrCodeInternal
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Is 判断错误是否携带给定代码
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
