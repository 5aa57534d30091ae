package workers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrAlreadyRunning 同一任务已在本进程处理中
var ErrAlreadyRunning = errors.New("task already running in this process")

// Entry 正在处理的任务
type Entry struct {
	TaskID    string    `json:"task_id"`
	Path      string    `json:"path"`
	StartedAt time.Time `json:"started_at"`
}

type inflight struct {
	Entry
	cancel context.CancelFunc
}

// Registry 本进程正在处理的任务及其取消函数
type Registry struct {
	mu    sync.RWMutex
	items map[string]inflight // key: task id
}

func NewRegistry() *Registry {
	return &Registry{
		items: map[string]inflight{},
	}
}

// Add 登记任务；已存在时返回 ErrAlreadyRunning
func (r *Registry) Add(taskID, path string, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[taskID]; ok {
		return ErrAlreadyRunning
	}
	r.items[taskID] = inflight{
		Entry:  Entry{TaskID: taskID, Path: path, StartedAt: time.Now()},
		cancel: cancel,
	}
	return nil
}

// Remove 处理结束后移除
func (r *Registry) Remove(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, taskID)
}

// Cancel 取消指定任务的上下文；任务不在本进程时返回 false
func (r *Registry) Cancel(taskID string) bool {
	r.mu.RLock()
	v, ok := r.items[taskID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	v.cancel()
	return true
}

// Get 获取指定任务
func (r *Registry) Get(taskID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[taskID]
	return v.Entry, ok
}

// List 返回所有正在处理的任务，按开始时间排序
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.items))
	for _, v := range r.items {
		out = append(out, v.Entry)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].TaskID < out[j].TaskID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})

	return out
}

// Len 正在处理的任务数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
