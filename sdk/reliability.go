package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Updater 上报任务进度/终态
type Updater interface {
	UpdateTask(ctx context.Context, req UpdateTaskRequest) (*Task, error)
}

// ReportRetryConfig 上报重试配置
type ReportRetryConfig struct {
	MaxRetries     int           // 最大重试次数，默认 3
	InitialBackoff time.Duration // 初始退避时间，默认 1秒
	MaxBackoff     time.Duration // 最大退避时间，默认 30秒
	BackoffFactor  float64       // 退避因子，默认 2.0（指数退避）
}

// DefaultReportRetryConfig 默认重试配置
func DefaultReportRetryConfig() ReportRetryConfig {
	return ReportRetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// ReportWithRetry 带重试的状态上报；ErrNotFound/ErrTaskFinalized 与 4xx 不重试
func ReportWithRetry(ctx context.Context, u Updater, req UpdateTaskRequest, config ReportRetryConfig) (*Task, error) {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}

			backoff = time.Duration(float64(backoff) * config.BackoffFactor)
			if config.MaxBackoff > 0 && backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}

		task, err := u.UpdateTask(ctx, req)
		if err == nil {
			if attempt > 0 {
				log.Info().Str("task_id", req.TaskID).Int("attempt", attempt).Msg("上报重试成功")
			}
			return task, nil
		}
		if !retryableReport(err) {
			return nil, err
		}

		lastErr = err
		log.Warn().Err(err).
			Str("task_id", req.TaskID).
			Int("attempt", attempt+1).
			Int("max_attempts", config.MaxRetries+1).
			Msg("上报失败")
	}

	return nil, fmt.Errorf("上报失败，已达最大重试次数: %w", lastErr)
}

func retryableReport(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTaskFinalized) || errors.Is(err, ErrClaimLost) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}
	return true
}

// GracefulShutdownManager 优雅关闭管理器
type GracefulShutdownManager struct {
	timeout       time.Duration
	shutdownHooks []func(context.Context) error
	mu            sync.Mutex
}

// NewGracefulShutdownManager 创建优雅关闭管理器
func NewGracefulShutdownManager(timeout time.Duration) *GracefulShutdownManager {
	return &GracefulShutdownManager{
		timeout:       timeout,
		shutdownHooks: make([]func(context.Context) error, 0),
	}
}

// AddHook 添加关闭钩子，按添加顺序执行
func (g *GracefulShutdownManager) AddHook(hook func(context.Context) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shutdownHooks = append(g.shutdownHooks, hook)
}

// Shutdown 执行所有钩子；单个钩子失败不影响后续钩子，返回合并后的错误
func (g *GracefulShutdownManager) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.mu.Lock()
	hooks := make([]func(context.Context) error, len(g.shutdownHooks))
	copy(hooks, g.shutdownHooks)
	g.mu.Unlock()

	log.Info().Dur("timeout", g.timeout).Msg("开始优雅关闭")

	var errs []error
	for i, hook := range hooks {
		if err := hook(ctx); err != nil {
			log.Error().Err(err).Int("hook", i).Msg("关闭钩子执行失败")
			errs = append(errs, err)
		}
	}

	log.Info().Msg("优雅关闭完成")
	return errors.Join(errs...)
}
