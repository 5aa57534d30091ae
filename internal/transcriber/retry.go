package transcriber

import (
	"context"
	"time"

	"github.com/avast/retry-go"

	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/metrics"
)

// Policy 重试策略：最多 Attempts 次，第 n 次重试前等待 Delay × 2^n
type Policy struct {
	Attempts uint
	Delay    time.Duration
}

var (
	// GeneratePolicy 生成请求：3 次，基数 1s
	GeneratePolicy = Policy{Attempts: 3, Delay: time.Second}
	// UploadPolicy 上传请求：5 次，基数 2s
	UploadPolicy = Policy{Attempts: 5, Delay: 2 * time.Second}
)

// withRetry 按策略执行 fn，仅对可重试错误重试，返回最后一次错误
func withRetry(ctx context.Context, op string, p Policy, fn func() error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	err := retry.Do(
		func() error {
			err := fn()
			if err != nil {
				metrics.RecordProviderCall(op, "error")
				return err
			}
			metrics.RecordProviderCall(op, "ok")
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			// 最后一次失败后不会再重试
			if n+1 >= attempts {
				return
			}
			metrics.RecordProviderRetry(op)
			logger.L.Warn().
				Str("op", op).
				Uint("attempt", n+1).
				Err(err).
				Msg("转写服务调用失败，准备重试")
		}),
	)
	return err
}
