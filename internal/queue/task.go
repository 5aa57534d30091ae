package asynqx

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueMaintenance 维护任务队列
	QueueMaintenance = "maintenance"

	// TypeRequeueStale 周期性重置超时未更新的任务
	TypeRequeueStale = "maintenance:requeue_stale"
	// TypeBlobCleanup 重试删除残留的媒体文件
	TypeBlobCleanup = "blob:cleanup"

	// BlobCleanupMaxRetry 删除重试上限
	BlobCleanupMaxRetry = 5
)

// BlobCleanupPayload blob:cleanup 任务参数
type BlobCleanupPayload struct {
	TaskID string `json:"task_id"`
	Key    string `json:"key"`
}

// NewBlobCleanupTask 构造 blob:cleanup 任务
func NewBlobCleanupTask(taskID, key string) (*asynq.Task, error) {
	b, err := json.Marshal(BlobCleanupPayload{TaskID: taskID, Key: key})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBlobCleanup, b), nil
}

// NewRequeueStaleTask 构造 requeue_stale 任务
func NewRequeueStaleTask() *asynq.Task {
	return asynq.NewTask(TypeRequeueStale, nil)
}

type EnqueueParams struct {
	TaskKey  string
	Queue    string
	MaxRetry int
	Timeout  time.Duration
	Delay    time.Duration
}

func EnqueueOptions(p EnqueueParams) []asynq.Option {
	var opts []asynq.Option

	if p.Queue != "" {
		opts = append(opts, asynq.Queue(p.Queue))
	}
	if p.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(p.MaxRetry))
	}
	if p.Timeout > 0 {
		opts = append(opts, asynq.Timeout(p.Timeout))
	}
	if p.Delay > 0 {
		opts = append(opts, asynq.ProcessIn(p.Delay))
	}

	// 幂等：同一个 task_key 只保留一个待执行任务
	if p.TaskKey != "" {
		opts = append(opts, asynq.TaskID(p.TaskKey))
	}

	return opts
}
