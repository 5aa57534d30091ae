package scheduler

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"

	"github.com/azhengyongqin/transcribe-hub/internal/logger"
)

// NewJitterTicker 带正态抖动的 ticker，避免多个进程同时打到数据库
func NewJitterTicker(interval time.Duration) *jitterbug.Ticker {
	stdev := interval / 10
	if stdev <= 0 {
		stdev = time.Millisecond
	}
	return jitterbug.New(interval, &jitterbug.Norm{Stdev: stdev, Mean: 0})
}

// RunReaper 在进程内周期执行 RequeueStale（未配置 Redis 时替代 asynq 周期任务）
func RunReaper(ctx context.Context, r *Reaper, interval time.Duration) {
	ticker := NewJitterTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if _, err := r.RequeueStale(ctx); err != nil && ctx.Err() == nil {
			logger.L.Error().Err(err).Msg("stale 任务重置失败")
		}
	}
}
