package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/azhengyongqin/transcribe-hub/internal/model"
)

// MemoryTaskStore 基于内存 map 的 TaskStore（单进程开发与测试使用）
type MemoryTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
	now   func() time.Time
}

// NewMemoryTaskStore 创建内存任务存储
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks: make(map[string]*model.Task),
		now:   time.Now,
	}
}

func (s *MemoryTaskStore) Insert(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	t.Status = model.TaskStatusPending
	t.Progress = 0
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *MemoryTaskStore) Get(_ context.Context, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryTaskStore) List(_ context.Context, f ListTasksFilter) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.OwnerID != "" && (t.OwnerID == nil || *t.OwnerID != f.OwnerID) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []model.Task{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryTaskStore) Update(_ context.Context, id string, u TaskUpdate) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	next, err := applyUpdate(*t, u)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = s.tick()
	*t = next
	cp := next
	return &cp, nil
}

func (s *MemoryTaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryTaskStore) Claim(_ context.Context, workerName string, inlineMaxBytes int64) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *model.Task
	for _, t := range s.tasks {
		if t.Status != model.TaskStatusPending {
			continue
		}
		if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) {
			oldest = t
		}
	}
	if oldest == nil {
		return nil, nil
	}

	now := s.tick()
	oldest.Status = model.TaskStatusProcessing
	if oldest.FileSize > inlineMaxBytes {
		oldest.Status = model.TaskStatusUploading
	}
	oldest.Progress = 10
	name := workerName
	oldest.ClaimedBy = &name
	oldest.ClaimedAt = &now
	oldest.UpdatedAt = now
	cp := *oldest
	return &cp, nil
}

func (s *MemoryTaskStore) RequeueStale(_ context.Context, before time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, t := range s.tasks {
		if !t.Status.IsClaimed() || !t.UpdatedAt.Before(before) {
			continue
		}
		t.Status = model.TaskStatusPending
		t.Progress = 0
		t.ClaimedBy, t.ClaimedAt = nil, nil
		t.UpdatedAt = s.tick()
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// tick 返回严格递增的时间，保证 created_at 排序稳定
func (s *MemoryTaskStore) tick() time.Time {
	now := s.now()
	for _, t := range s.tasks {
		if !now.After(t.CreatedAt) {
			now = t.CreatedAt.Add(time.Microsecond)
		}
	}
	return now
}

// SetClock 替换时钟（测试使用）
func (s *MemoryTaskStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
