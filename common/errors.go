package common

import (
	"errors"
	"fmt"
	"net/http"
)

// 图片编辑链路上的错误分类，调用方通过 errors.Is 判断
var (
	// ErrConfiguration 提供方客户端无法构建
	ErrConfiguration = errors.New("provider configuration error")
	// ErrCredential 所需的 API Key 未设置
	ErrCredential = errors.New("provider credential missing")
	// ErrProvider 上游接口调用失败（包括鉴权失败与限流）
	ErrProvider = errors.New("provider request failed")
	// ErrData 响应解析成功但没有可用的图片数据
	ErrData = errors.New("no usable image data")
)

// ProviderError 上游调用失败的详细信息
type ProviderError struct {
	Provider   string
	StatusCode int // 上游 HTTP 状态码，未知时为 0
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

// Unwrap 同时暴露分类哨兵和 SDK 原始错误
func (e *ProviderError) Unwrap() []error {
	return []error{ErrProvider, e.Err}
}

// RateLimited 上游是否返回了限流（仅用于识别，不做重试）
func (e *ProviderError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// NewProviderError 包装上游错误
func NewProviderError(provider string, statusCode int, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ErrorKind 返回错误分类名称，用于日志和工具输出
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrCredential):
		return "credential"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrData):
		return "data"
	default:
		return "internal"
	}
}
