package search

import (
	"errors"
	"fmt"
)

// ErrStrategyUnavailable 请求的数据源未配置凭据
var ErrStrategyUnavailable = errors.New("search strategy not configured")

// TransportError 网络错误、非 2xx 响应或数据源返回的错误状态
type TransportError struct {
	Provider   string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: request %s failed (status %d): %v", e.Provider, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: request %s failed: %v", e.Provider, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NormalizeError 响应结构不符合预期，当前请求中止
type NormalizeError struct {
	Provider string
	Page     int
	Err      error
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("%s: normalize page %d: %v", e.Provider, e.Page, e.Err)
}

func (e *NormalizeError) Unwrap() error { return e.Err }
