package scheduler

import (
	"context"
	"time"

	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/metrics"
	"github.com/azhengyongqin/transcribe-hub/internal/model"
	"github.com/azhengyongqin/transcribe-hub/internal/repository"
)

// Claimer 认领一个任务；没有任务时返回 (nil, nil)
type Claimer interface {
	Claim(ctx context.Context) (*model.Task, error)
}

// Scheduler 基于 TaskStore 的认领调度器：每次调用最多认领一个最早的 pending 任务
type Scheduler struct {
	store          repository.TaskStore
	workerName     string
	inlineMaxBytes int64
}

// New 创建调度器；inlineMaxBytes 决定认领后进入 uploading 还是 processing
func New(store repository.TaskStore, workerName string, inlineMaxBytes int64) *Scheduler {
	return &Scheduler{store: store, workerName: workerName, inlineMaxBytes: inlineMaxBytes}
}

func (s *Scheduler) Claim(ctx context.Context) (*model.Task, error) {
	t, err := s.store.Claim(ctx, s.workerName, s.inlineMaxBytes)
	if err != nil {
		metrics.RecordClaim("error")
		return nil, err
	}
	if t == nil {
		metrics.RecordClaim("empty")
		return nil, nil
	}
	metrics.RecordClaim("hit")
	logger.L.Info().
		Str("task_id", t.ID).
		Str("worker", s.workerName).
		Str("status", string(t.Status)).
		Int64("file_size", t.FileSize).
		Msg("任务已认领")
	return t, nil
}

// Reaper 把长时间没有更新的 uploading/processing 任务放回 pending（worker 崩溃恢复）
type Reaper struct {
	store      repository.TaskStore
	staleAfter time.Duration
	now        func() time.Time
}

// NewReaper 创建 reaper
func NewReaper(store repository.TaskStore, staleAfter time.Duration) *Reaper {
	return &Reaper{store: store, staleAfter: staleAfter, now: time.Now}
}

// RequeueStale 执行一次重置，返回重置的任务数
func (r *Reaper) RequeueStale(ctx context.Context) (int, error) {
	ids, err := r.store.RequeueStale(ctx, r.now().Add(-r.staleAfter))
	if err != nil {
		metrics.RecordError("reaper", "requeue")
		return 0, err
	}
	for _, id := range ids {
		logger.L.Warn().Str("task_id", id).Dur("stale_after", r.staleAfter).Msg("任务超时未更新，已放回 pending")
	}
	metrics.RecordStaleRequeued(len(ids))
	return len(ids), nil
}
