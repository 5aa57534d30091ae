package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/azhengyongqin/transcribe-hub/docs" // Swagger docs
	"github.com/azhengyongqin/transcribe-hub/internal/blob"
	"github.com/azhengyongqin/transcribe-hub/internal/config"
	"github.com/azhengyongqin/transcribe-hub/internal/healthcheck"
	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/media"
	"github.com/azhengyongqin/transcribe-hub/internal/notify"
	asynqx "github.com/azhengyongqin/transcribe-hub/internal/queue"
	"github.com/azhengyongqin/transcribe-hub/internal/repository"
	"github.com/azhengyongqin/transcribe-hub/internal/scheduler"
	httpserver "github.com/azhengyongqin/transcribe-hub/internal/server"
	"github.com/azhengyongqin/transcribe-hub/internal/service"
	"github.com/azhengyongqin/transcribe-hub/internal/storage/postgres"
	"github.com/azhengyongqin/transcribe-hub/internal/transcriber"
	workers "github.com/azhengyongqin/transcribe-hub/internal/worker"
)

const version = "1.0.0"

// @title Transcribe-Hub API
// @version 1.0.0
// @description 音频转写任务平台 - 上传音频，由 worker 认领并调用转写服务
// @contact.name Transcribe-Hub Support
// @license.name MIT
// @BasePath /api/v1
// @schemes http https
// @host localhost:28080
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logger.Init(false, "info")

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.L.Fatal().Err(err).Msg("加载配置失败")
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		logger.L.Fatal().Err(err).Msg("配置验证失败")
	}
	if cfg.Worker.Embedded {
		if err := cfg.ValidateWorker(); err != nil {
			logger.L.Fatal().Err(err).Msg("内置 worker 配置验证失败")
		}
	}
	logger.Init(cfg.Log.Production, cfg.Log.Level)

	logger.L.Info().
		Str("http", cfg.HTTP.Addr).
		Str("storage", cfg.Storage.Backend).
		Bool("redis", cfg.Redis.Enabled()).
		Bool("embedded_worker", cfg.Worker.Embedded).
		Msg("服务启动")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres.DSN, postgres.PoolConfig{
		MaxConns:          cfg.DBPool.MaxConns,
		MinConns:          cfg.DBPool.MinConns,
		MaxConnLifetime:   cfg.DBPool.MaxConnLifetime,
		MaxConnIdleTime:   cfg.DBPool.MaxConnIdleTime,
		HealthCheckPeriod: cfg.DBPool.HealthCheckPeriod,
	})
	if err != nil {
		logger.L.Fatal().Err(err).Msg("连接数据库失败")
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db.SQL); err != nil {
		logger.L.Fatal().Err(err).Msg("数据库迁移失败")
	}
	go db.ReportPoolStats(ctx, 15*time.Second)

	store := repository.NewTaskRepo(db.Pool)
	users := repository.NewUserRepo(db.Gorm)

	blobs, err := blob.New(ctx, cfg.Storage)
	if err != nil {
		logger.L.Fatal().Err(err).Msg("初始化媒体存储失败")
	}

	healthChecker := healthcheck.NewHealthChecker(version).Register("postgres", db)

	// 有 Redis 时：跨进程通知 + asynq 维护任务；否则进程内通知 + 本地定时 reaper
	reaper := scheduler.NewReaper(store, cfg.Worker.StaleTimeout)
	var (
		bus     notify.Bus
		cleaner service.BlobCleaner
	)
	if cfg.Redis.Enabled() {
		rb, err := notify.NewRedis(cfg.Redis.URI())
		if err != nil {
			logger.L.Fatal().Err(err).Msg("连接 Redis 失败")
		}
		defer rb.Close()
		bus = rb
		healthChecker.Register("redis", rb)

		qc, err := asynqx.NewClient(cfg.Redis.URI())
		if err != nil {
			logger.L.Fatal().Err(err).Msg("创建 asynq client 失败")
		}
		defer qc.Close()
		cleaner = qc

		maint, err := asynqx.NewMaintenance(cfg.Redis.URI(), reaper, blobs, "")
		if err != nil {
			logger.L.Fatal().Err(err).Msg("创建维护进程失败")
		}
		if err := maint.Start(); err != nil {
			logger.L.Fatal().Err(err).Msg("启动维护进程失败")
		}
		defer maint.Shutdown()
	} else {
		bus = notify.NewLocal()
		go scheduler.RunReaper(ctx, reaper, time.Minute)
	}

	prober := media.NewFFProbe(cfg.Limits.FFProbePath)
	taskSvc := service.NewTaskService(store, blobs, prober, bus, cleaner, service.TaskOptions{
		MaxUploadBytes:   cfg.Limits.MaxUploadBytes,
		MaxAudioDuration: cfg.Limits.MaxAudioDuration,
		DefaultLanguage:  cfg.Provider.DefaultLanguage,
		Users:            users,
	})
	workerSvc := service.NewWorkerService(store, blobs, cleaner, cfg.Provider.InlineMaxBytes)
	internalSvc := service.NewInternalService(users, store)

	// 内置 worker：与 API 同进程，直接走数据库认领
	poolDone := make(chan struct{})
	if cfg.Worker.Embedded {
		client, err := transcriber.FromConfig(cfg.Provider)
		if err != nil {
			logger.L.Fatal().Err(err).Msg("创建转写客户端失败")
		}
		name := cfg.Worker.Name
		if name == "" {
			name = "embedded"
		}
		var workerCleaner workers.BlobCleaner
		if cleaner != nil {
			workerCleaner = cleaner
		}
		src := workers.NewDBSource(scheduler.New(store, name, client.InlineMaxBytes()), store, blobs, workerCleaner)
		pool := workers.NewPool(src, client, bus, workers.Options{
			Name:         name,
			Concurrency:  cfg.Worker.Concurrency,
			PollInterval: cfg.Worker.PollInterval,
			TempDir:      cfg.Worker.TempDir,
			Heartbeat:    cfg.Worker.StaleTimeout / 3,
		})
		go func() {
			defer close(poolDone)
			if err := pool.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.L.Error().Err(err).Msg("内置 worker 退出")
			}
		}()
	} else {
		close(poolDone)
	}

	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpserver.NewRouter(httpserver.Deps{
			Tasks:            taskSvc,
			Workers:          workerSvc,
			Internal:         internalSvc,
			HealthChecker:    healthChecker,
			WorkerAPIKey:     cfg.Auth.WorkerAPIKey,
			InternalAPIToken: cfg.Auth.InternalAPIToken,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.L.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP 服务监听")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Fatal().Err(err).Msg("HTTP 服务错误")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(shutdownCtx)
	select {
	case <-poolDone:
	case <-shutdownCtx.Done():
		logger.L.Warn().Msg("等待内置 worker 退出超时")
	}
	logger.L.Info().Msg("服务已优雅关闭")
}
