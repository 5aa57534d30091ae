package transcriber

import (
	"context"
	"io"
)

// FileState 暂存文件状态
type FileState string

const (
	FileStateProcessing FileState = "PROCESSING"
	FileStateActive     FileState = "ACTIVE"
	FileStateFailed     FileState = "FAILED"
)

// File 转写服务侧暂存文件句柄
type File struct {
	Name     string    `json:"name"`
	URI      string    `json:"uri"`
	MimeType string    `json:"mimeType"`
	State    FileState `json:"state"`
}

// Prompt 请求转写时的指令
type Prompt struct {
	DefaultLanguage string
	Structured      bool
}

// Provider 转写服务（黑盒）：提交媒体，返回文本或结构化 JSON
type Provider interface {
	// Name 用于日志
	Name() string

	// GenerateInline 单次请求直接携带媒体内容
	GenerateInline(ctx context.Context, data []byte, mimeType string, p Prompt) (string, error)
}

// StagedProvider 支持“上传-轮询-生成-删除”的大文件路径
type StagedProvider interface {
	Provider

	// Upload 上传媒体到暂存区
	Upload(ctx context.Context, r io.Reader, size int64, mimeType, displayName string) (*File, error)

	// GetFile 查询暂存文件状态
	GetFile(ctx context.Context, name string) (*File, error)

	// GenerateFromFile 引用暂存文件生成转写
	GenerateFromFile(ctx context.Context, f *File, p Prompt) (string, error)

	// DeleteFile 释放暂存文件
	DeleteFile(ctx context.Context, name string) error
}
