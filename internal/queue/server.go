package asynqx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/azhengyongqin/transcribe-hub/internal/logger"
)

// StaleRequeuer 重置超时任务
type StaleRequeuer interface {
	RequeueStale(ctx context.Context) (int, error)
}

// BlobDeleter 删除媒体文件
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Maintenance asynq 维护进程：处理 blob:cleanup，并按周期触发 requeue_stale
type Maintenance struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	cron      string
}

// NewMaintenance 创建维护进程；cron 为空时默认每分钟
func NewMaintenance(redisURI string, reaper StaleRequeuer, blobs BlobDeleter, cron string) (*Maintenance, error) {
	opt, err := NewRedisConnOpt(redisURI)
	if err != nil {
		return nil, err
	}
	if cron == "" {
		cron = "@every 1m"
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{QueueMaintenance: 1},
		Logger:      asynqLogger{},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRequeueStale, HandleRequeueStale(reaper))
	mux.HandleFunc(TypeBlobCleanup, HandleBlobCleanup(blobs))

	sched := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Logger: asynqLogger{}})

	return &Maintenance{server: srv, scheduler: sched, mux: mux, cron: cron}, nil
}

// Start 启动处理与周期调度（非阻塞）
func (m *Maintenance) Start() error {
	if _, err := m.scheduler.Register(m.cron, NewRequeueStaleTask(),
		asynq.Queue(QueueMaintenance), asynq.Unique(50*time.Second)); err != nil {
		return fmt.Errorf("register %s: %w", TypeRequeueStale, err)
	}
	if err := m.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := m.server.Start(m.mux); err != nil {
		m.scheduler.Shutdown()
		return fmt.Errorf("start maintenance server: %w", err)
	}
	logger.L.Info().Str("cron", m.cron).Msg("维护任务已启动")
	return nil
}

// Shutdown 停止
func (m *Maintenance) Shutdown() {
	m.scheduler.Shutdown()
	m.server.Shutdown()
}

// HandleRequeueStale 处理 requeue_stale
func HandleRequeueStale(reaper StaleRequeuer) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := reaper.RequeueStale(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.L.Warn().Int("count", n).Msg("stale 任务已放回 pending")
		}
		return nil
	}
}

// HandleBlobCleanup 处理 blob:cleanup
func HandleBlobCleanup(blobs BlobDeleter) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p BlobCleanupPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
		if err := blobs.Delete(ctx, p.Key); err != nil {
			return err
		}
		logger.L.Info().Str("task_id", p.TaskID).Str("key", p.Key).Msg("残留媒体文件已删除")
		return nil
	}
}

// asynqLogger 把 asynq 日志转到 zerolog
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { logger.L.Debug().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...interface{})  { logger.L.Info().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...interface{})  { logger.L.Warn().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...interface{}) { logger.L.Error().Msg(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...interface{}) { logger.L.Fatal().Msg(fmt.Sprint(args...)) }
