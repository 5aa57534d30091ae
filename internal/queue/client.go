package asynqx

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// Client 维护任务入队客户端
type Client struct {
	*asynq.Client
}

// NewClient 创建入队客户端；redisURI 形如 redis://localhost:6379/0
func NewClient(redisURI string) (*Client, error) {
	opt, err := NewRedisConnOpt(redisURI)
	if err != nil {
		return nil, err
	}
	return &Client{Client: asynq.NewClient(opt)}, nil
}

// ScheduleBlobCleanup 入队一个删除媒体文件的重试任务（同一 task 只保留一个）
func (c *Client) ScheduleBlobCleanup(ctx context.Context, taskID, key string) error {
	t, err := NewBlobCleanupTask(taskID, key)
	if err != nil {
		return err
	}
	_, err = c.EnqueueContext(ctx, t, EnqueueOptions(EnqueueParams{
		Queue:    QueueMaintenance,
		TaskKey:  "blob-cleanup:" + taskID,
		MaxRetry: BlobCleanupMaxRetry,
	})...)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) && !errors.Is(err, asynq.ErrDuplicateTask) {
		return fmt.Errorf("enqueue blob cleanup: %w", err)
	}
	return nil
}
