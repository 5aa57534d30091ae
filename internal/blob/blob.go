package blob

import (
	"context"
	"errors"
	"io"

	"github.com/azhengyongqin/transcribe-hub/internal/config"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("blob not found")

// Store 媒体文件存储，key 为 model.BlobKey（按 task id 分区）
type Store interface {
	// Put 写入对象，size 未知时传 -1
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Open 读取对象，不存在时返回 ErrNotFound
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete 删除对象；对象不存在不算错误
	Delete(ctx context.Context, key string) error

	// Type 存储类型，用于日志
	Type() string
}

// New 按配置创建存储
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "minio":
		return NewMinio(ctx,
			WithEndpoint(cfg.MinioEndpoint),
			WithBucket(cfg.MinioBucket),
			WithAccessKey(cfg.MinioAccessKey),
			WithSecretKey(cfg.MinioSecretKey),
			WithSSL(cfg.MinioUseSSL),
		)
	default:
		return NewLocal(cfg.UploadDir)
	}
}
