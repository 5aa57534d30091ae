package workers

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/notify"
	"github.com/azhengyongqin/transcribe-hub/internal/scheduler"
	"github.com/azhengyongqin/transcribe-hub/internal/transcriber"
)

// Options worker 池配置
type Options struct {
	Name         string
	Concurrency  int
	PollInterval time.Duration
	TempDir      string
	// Heartbeat 处理中任务刷新 updated_at 的间隔，应明显小于 stale 超时
	Heartbeat time.Duration
}

// Pool 固定大小的 worker 池：每个槽位独立认领、处理任务，彼此只共享 Task Store
type Pool struct {
	src      Source
	client   *transcriber.Client
	events   notify.Subscriber
	registry *Registry
	opts     Options
	wake     chan struct{}
}

// NewPool 创建 worker 池；events 为 nil 时只靠轮询
func NewPool(src Source, client *transcriber.Client, events notify.Subscriber, opts Options) *Pool {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = time.Minute
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if events == nil {
		events = notify.Noop{}
	}
	return &Pool{
		src:      src,
		client:   client,
		events:   events,
		registry: NewRegistry(),
		opts:     opts,
		wake:     make(chan struct{}, opts.Concurrency),
	}
}

// Registry 正在处理的任务
func (p *Pool) Registry() *Registry { return p.registry }

// Run 阻塞运行直到 ctx 结束；退出前处理中的任务会被放回 pending
func (p *Pool) Run(ctx context.Context) error {
	if err := os.MkdirAll(p.opts.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	events, err := p.events.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe events: %w", err)
	}

	log := logger.WithWorkerName(p.opts.Name)
	log.Info().
		Int("concurrency", p.opts.Concurrency).
		Dur("poll_interval", p.opts.PollInterval).
		Str("temp_dir", p.opts.TempDir).
		Msg("worker 池已启动")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.listen(gctx, events)
		return nil
	})
	for i := 0; i < p.opts.Concurrency; i++ {
		slot := i
		g.Go(func() error {
			p.loop(gctx, slot)
			return nil
		})
	}

	err = g.Wait()
	log.Info().Msg("worker 池已退出")
	return err
}

// listen 处理唤醒与取消事件
func (p *Pool) listen(ctx context.Context, events <-chan notify.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			p.handleEvent(e)
		}
	}
}

func (p *Pool) handleEvent(e notify.Event) {
	switch e.Type {
	case notify.EventTaskCreated:
		select {
		case p.wake <- struct{}{}:
		default:
		}
	case notify.EventTaskCancelled:
		if p.registry.Cancel(e.TaskID) {
			log := logger.WithTaskID(e.TaskID)
			log.Info().Str("worker", p.opts.Name).Msg("收到取消通知，中止处理")
		}
	}
}

// loop 单个槽位：有任务就连续处理，没有任务时等待 ticker 或唤醒
func (p *Pool) loop(ctx context.Context, slot int) {
	ticker := scheduler.NewJitterTicker(p.opts.PollInterval)
	defer ticker.Stop()

	log := logger.WithWorkerName(p.opts.Name).With().Int("slot", slot).Logger()
	for {
		if ctx.Err() != nil {
			return
		}

		t, err := p.src.Claim(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("认领任务失败")
		}
		if t != nil {
			p.process(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.wake:
		}
	}
}
