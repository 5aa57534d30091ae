package service

import (
	"errors"
	"fmt"
)

// ErrNotCompleted 任务尚未完成，不能下载
var ErrNotCompleted = errors.New("task is not completed")

// ValidationError 请求校验失败（映射为 400）
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
