package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/azhengyongqin/transcribe-hub/internal/blob"
	"github.com/azhengyongqin/transcribe-hub/internal/config"
	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/notify"
	asynqx "github.com/azhengyongqin/transcribe-hub/internal/queue"
	"github.com/azhengyongqin/transcribe-hub/internal/repository"
	"github.com/azhengyongqin/transcribe-hub/internal/scheduler"
	"github.com/azhengyongqin/transcribe-hub/internal/storage/postgres"
	"github.com/azhengyongqin/transcribe-hub/internal/transcriber"
	workers "github.com/azhengyongqin/transcribe-hub/internal/worker"
	"github.com/azhengyongqin/transcribe-hub/sdk"
)

const shutdownTimeout = 60 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the transcription worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		applyFlags(cfg)
		if err := cfg.ValidateWorker(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		client, err := transcriber.FromConfig(cfg.Provider)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdown := sdk.NewGracefulShutdownManager(shutdownTimeout)

		var events notify.Subscriber = notify.Noop{}
		if cfg.Redis.Enabled() {
			rb, err := notify.NewRedis(cfg.Redis.URI())
			if err != nil {
				return fmt.Errorf("connecting redis: %w", err)
			}
			shutdown.AddHook(func(context.Context) error { return rb.Close() })
			events = rb
		}

		var src workers.Source
		switch cfg.Worker.Mode {
		case "api":
			src = workers.NewAPISource(sdk.NewClient(cfg.Worker.APIBaseURL, cfg.Auth.WorkerAPIKey, cfg.Worker.Name))
		default:
			src, err = newDBSource(ctx, cfg, client.InlineMaxBytes(), shutdown)
			if err != nil {
				return err
			}
		}

		log := logger.WithWorkerName(cfg.Worker.Name)
		log.Info().
			Str("mode", cfg.Worker.Mode).
			Int("concurrency", cfg.Worker.Concurrency).
			Int64("inline_max_bytes", client.InlineMaxBytes()).
			Msg("worker 启动")

		pool := workers.NewPool(src, client, events, workers.Options{
			Name:         cfg.Worker.Name,
			Concurrency:  cfg.Worker.Concurrency,
			PollInterval: cfg.Worker.PollInterval,
			TempDir:      cfg.Worker.TempDir,
			Heartbeat:    cfg.Worker.StaleTimeout / 3,
		})

		done := make(chan error, 1)
		go func() { done <- pool.Run(ctx) }()

		var runErr error
		select {
		case runErr = <-done:
		case <-ctx.Done():
			log.Info().Int("in_flight", pool.Registry().Len()).Msg("收到退出信号，等待任务回收")
			select {
			case runErr = <-done:
			case <-time.After(shutdownTimeout):
				log.Warn().Msg("等待任务回收超时")
			}
		}
		if errors.Is(runErr, context.Canceled) {
			runErr = nil
		}

		if err := shutdown.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("释放资源失败")
		}
		log.Info().Msg("worker 已退出")
		return runErr
	},
}

// applyFlags 命令行参数覆盖配置
func applyFlags(cfg *config.Config) {
	if mode != "" {
		cfg.Worker.Mode = strings.ToLower(mode)
	}
	if workerName != "" {
		cfg.Worker.Name = workerName
	}
	if concurrency > 0 {
		cfg.Worker.Concurrency = concurrency
	}
	if cfg.Worker.Name == "" {
		host, _ := os.Hostname()
		cfg.Worker.Name = "worker-" + host
	}
}

// newDBSource 直连数据库与媒体存储
func newDBSource(ctx context.Context, cfg *config.Config, inlineMaxBytes int64, shutdown *sdk.GracefulShutdownManager) (workers.Source, error) {
	db, err := postgres.Open(ctx, cfg.Postgres.DSN, postgres.PoolConfig{
		MaxConns:          cfg.DBPool.MaxConns,
		MinConns:          cfg.DBPool.MinConns,
		MaxConnLifetime:   cfg.DBPool.MaxConnLifetime,
		MaxConnIdleTime:   cfg.DBPool.MaxConnIdleTime,
		HealthCheckPeriod: cfg.DBPool.HealthCheckPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing data store: %w", err)
	}
	shutdown.AddHook(func(context.Context) error {
		db.Close()
		return nil
	})
	go db.ReportPoolStats(ctx, 15*time.Second)

	blobs, err := blob.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing media storage: %w", err)
	}

	var cleaner workers.BlobCleaner
	if cfg.Redis.Enabled() {
		qc, err := asynqx.NewClient(cfg.Redis.URI())
		if err != nil {
			return nil, fmt.Errorf("creating asynq client: %w", err)
		}
		shutdown.AddHook(func(context.Context) error { return qc.Close() })
		cleaner = qc
	}

	store := repository.NewTaskRepo(db.Pool)
	return workers.NewDBSource(scheduler.New(store, cfg.Worker.Name, inlineMaxBytes), store, blobs, cleaner), nil
}
