package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

var (
	// ErrEmptyResponse 转写服务返回空内容
	ErrEmptyResponse = errors.New("empty transcription response")
	// ErrMalformedResponse 响应无法解析
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrFileProcessingTimeout 暂存文件在轮询上限内未就绪
	ErrFileProcessingTimeout = errors.New("file processing timed out")
	// ErrUnsupportedState 暂存文件进入未知或失败状态
	ErrUnsupportedState = errors.New("unsupported file state")
)

// ProviderError 转写服务调用失败
type ProviderError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("provider ")
	b.WriteString(e.Op)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable 判断错误是否值得重试。
// 可重试：连接重置/拒绝、超时、5xx、429、意外 EOF；其余（4xx、响应异常、空响应、状态异常）直接失败。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrUnsupportedState) || errors.Is(err, ErrFileProcessingTimeout) {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode > 0 {
		return pe.StatusCode >= http.StatusInternalServerError || pe.StatusCode == http.StatusTooManyRequests
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
