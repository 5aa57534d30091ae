package transcriber

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/model"
)

const (
	PathInline = "inline"
	PathStaged = "staged"
)

// Options 转写客户端配置
type Options struct {
	InlineMaxBytes  int64         // 超过该大小走暂存路径，默认 15 MiB
	PollInterval    time.Duration // 暂存文件状态轮询间隔，默认 5s
	MaxPollAttempts int           // 轮询上限，默认 360
	DefaultLanguage string        // 默认语言，默认 en
	Structured      bool          // 请求结构化（说话人/情绪/翻译）输出
	Generate        Policy
	Upload          Policy
}

// DefaultOptions 返回默认配置
func DefaultOptions() Options {
	return Options{
		InlineMaxBytes:  15 * 1024 * 1024,
		PollInterval:    5 * time.Second,
		MaxPollAttempts: 360,
		DefaultLanguage: model.DefaultLanguage,
		Structured:      true,
		Generate:        GeneratePolicy,
		Upload:          UploadPolicy,
	}
}

// Media 待转写的本地文件
type Media struct {
	Path     string
	FileName string
	MimeType string
	Size     int64
}

// Hooks 转写过程中的回调
type Hooks struct {
	// OnFileReady 暂存文件就绪后调用；返回错误时中止转写（释放仍会执行）
	OnFileReady func(ctx context.Context) error
}

// Client 转写客户端：按大小选择单次请求或暂存路径，所有网络调用带指数退避重试
type Client struct {
	provider Provider
	opts     Options
}

// NewClient 创建客户端，零值字段使用默认值
func NewClient(p Provider, opts Options) *Client {
	def := DefaultOptions()
	if opts.InlineMaxBytes <= 0 {
		opts.InlineMaxBytes = def.InlineMaxBytes
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.MaxPollAttempts <= 0 {
		opts.MaxPollAttempts = def.MaxPollAttempts
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = def.DefaultLanguage
	}
	if opts.Generate.Attempts == 0 {
		opts.Generate = def.Generate
	}
	if opts.Upload.Attempts == 0 {
		opts.Upload = def.Upload
	}
	return &Client{provider: p, opts: opts}
}

// InlineMaxBytes 单次请求路径的大小上限
func (c *Client) InlineMaxBytes() int64 { return c.opts.InlineMaxBytes }

// DefaultLanguage 默认语言
func (c *Client) DefaultLanguage() string { return c.opts.DefaultLanguage }

// PathFor 返回给定大小会走的路径
func (c *Client) PathFor(size int64) string {
	if _, ok := c.provider.(StagedProvider); ok && size > c.opts.InlineMaxBytes {
		return PathStaged
	}
	return PathInline
}

// Transcribe 转写一个本地文件
func (c *Client) Transcribe(ctx context.Context, m Media, h Hooks) (*model.Result, error) {
	if m.FileName == "" {
		m.FileName = filepath.Base(m.Path)
	}
	prompt := Prompt{DefaultLanguage: c.opts.DefaultLanguage, Structured: c.opts.Structured}

	var (
		raw string
		err error
	)
	if c.PathFor(m.Size) == PathStaged {
		raw, err = c.transcribeStaged(ctx, c.provider.(StagedProvider), m, prompt, h)
	} else {
		raw, err = c.transcribeInline(ctx, m, prompt)
	}
	if err != nil {
		return nil, err
	}
	return ParseResult(raw, c.opts.DefaultLanguage)
}

func (c *Client) transcribeInline(ctx context.Context, m Media, p Prompt) (string, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return "", fmt.Errorf("read media: %w", err)
	}

	var raw string
	err = withRetry(ctx, "generate", c.opts.Generate, func() error {
		var err error
		raw, err = c.provider.GenerateInline(ctx, data, m.MimeType, p)
		return err
	})
	return raw, err
}

func (c *Client) transcribeStaged(ctx context.Context, sp StagedProvider, m Media, p Prompt, h Hooks) (string, error) {
	f, err := os.Open(m.Path)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	var file *File
	err = withRetry(ctx, "upload", c.opts.Upload, func() error {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		var err error
		file, err = sp.Upload(ctx, f, m.Size, m.MimeType, m.FileName)
		return err
	})
	if err != nil {
		return "", err
	}
	defer c.release(ctx, sp, file.Name)

	ready, err := c.waitActive(ctx, sp, file)
	if err != nil {
		return "", err
	}

	if h.OnFileReady != nil {
		if err := h.OnFileReady(ctx); err != nil {
			return "", err
		}
	}

	var raw string
	err = withRetry(ctx, "generate", c.opts.Generate, func() error {
		var err error
		raw, err = sp.GenerateFromFile(ctx, ready, p)
		return err
	})
	return raw, err
}

// waitActive 轮询暂存文件直到 ACTIVE
func (c *Client) waitActive(ctx context.Context, sp StagedProvider, file *File) (*File, error) {
	cur := file
	for attempt := 1; ; attempt++ {
		switch cur.State {
		case FileStateActive:
			return cur, nil
		case FileStateProcessing, "":
		case FileStateFailed:
			return nil, fmt.Errorf("%w: provider failed to process %s", ErrUnsupportedState, cur.Name)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedState, cur.State)
		}

		if attempt > c.opts.MaxPollAttempts {
			return nil, fmt.Errorf("%w after %d polls", ErrFileProcessingTimeout, c.opts.MaxPollAttempts)
		}

		t := time.NewTimer(c.opts.PollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}

		var next *File
		err := withRetry(ctx, "get_file", c.opts.Generate, func() error {
			var err error
			next, err = sp.GetFile(ctx, file.Name)
			return err
		})
		if err != nil {
			return nil, err
		}
		if next.MimeType == "" {
			next.MimeType = file.MimeType
		}
		if next.URI == "" {
			next.URI = file.URI
		}
		cur = next
	}
}

// release 释放暂存文件；即使 ctx 已取消也执行
func (c *Client) release(ctx context.Context, sp StagedProvider, name string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	err := withRetry(cctx, "delete_file", c.opts.Generate, func() error {
		return sp.DeleteFile(cctx, name)
	})
	if err != nil {
		logger.L.Warn().Err(err).Str("file", name).Msg("释放暂存文件失败")
		return
	}
	logger.L.Debug().Str("file", name).Msg("暂存文件已释放")
}
