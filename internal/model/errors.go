package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// 错误分类
const (
	CodeNetwork = "network"
	CodeTimeout = "timeout"
	CodeUnknown = "unknown"
)

// APIError 统一错误形状 {error, code, message}
type APIError struct {
	Err     bool   `json:"error"`
	Code    string `json:"code"`    // network, timeout, unknown
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ClassifyError 将传输层错误归入统一分类
func ClassifyError(err error) *APIError {
	code := CodeUnknown

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		code = CodeTimeout
	case isNetworkError(err):
		code = CodeNetwork
	}

	return &APIError{
		Err:     true,
		Code:    code,
		Message: err.Error(),
	}
}

func isNetworkError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
