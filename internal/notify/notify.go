package notify

import (
	"context"
	"sync"
)

const (
	// EventTaskCreated 有新任务，空闲 worker 立即认领
	EventTaskCreated = "task.created"
	// EventTaskCancelled 任务被取消，持有该任务的 worker 取消其上下文
	EventTaskCancelled = "task.cancelled"
)

// Event 任务事件
type Event struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
}

// Publisher 发布事件
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber 订阅事件；ctx 结束时 channel 关闭
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Bus 同时具备发布与订阅能力
type Bus interface {
	Publisher
	Subscriber
}

// Noop 不做任何事（未配置 Redis 且无内嵌 worker）
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// Local 进程内广播（内嵌 worker 且未配置 Redis 时使用）
type Local struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewLocal 创建进程内广播
func NewLocal() *Local {
	return &Local{subs: make(map[chan Event]struct{})}
}

// Publish 非阻塞投递，订阅者处理不过来时丢弃（唤醒事件可丢，worker 仍会轮询）
func (l *Local) Publish(_ context.Context, e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 64)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.subs, ch)
		close(ch)
		l.mu.Unlock()
	}()
	return ch, nil
}
