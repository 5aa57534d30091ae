package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azhengyongqin/transcribe-hub/internal/model"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("not found")
	// ErrTaskFinalized 任务已处于终态，不允许再写入
	ErrTaskFinalized = errors.New("task already finalized")
	// ErrInvalidTransition 非法状态迁移
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrClaimLost 任务已不再由该 worker 持有（被 stale reaper 放回或被其他 worker 认领）
	ErrClaimLost = errors.New("task claimed by another worker")
	// ErrStatusChanged 当前状态与 ExpectStatus 不一致
	ErrStatusChanged = errors.New("task status changed")
)

// ListTasksFilter 任务列表查询过滤条件
type ListTasksFilter struct {
	OwnerID string
	Status  model.TaskStatus
	Limit   int
	Offset  int
}

// TaskUpdate 部分更新；nil 字段保持不变
type TaskUpdate struct {
	Status   *model.TaskStatus
	Progress *int
	Result   *model.Result
	Error    *string

	// Owner 非空时只有 claimed_by 等于它才允许写入
	Owner string
	// ExpectStatus 非 nil 时只在当前状态等于它时写入
	ExpectStatus *model.TaskStatus
}

// TaskStore 任务仓储接口（唯一事实来源）
type TaskStore interface {
	// Insert 插入 pending 任务
	Insert(ctx context.Context, t *model.Task) error

	// Get 根据 id 获取任务
	Get(ctx context.Context, id string) (*model.Task, error)

	// List 按创建时间倒序列出任务
	List(ctx context.Context, f ListTasksFilter) ([]model.Task, error)

	// Update 有条件的部分更新：终态行返回 ErrTaskFinalized，非法迁移返回 ErrInvalidTransition，
	// 认领者不符返回 ErrClaimLost，状态与 ExpectStatus 不符返回 ErrStatusChanged
	Update(ctx context.Context, id string, u TaskUpdate) (*model.Task, error)

	// Delete 删除任务行
	Delete(ctx context.Context, id string) error

	// Claim 原子认领最早的 pending 任务；没有任务时返回 (nil, nil)
	Claim(ctx context.Context, workerName string, inlineMaxBytes int64) (*model.Task, error)

	// RequeueStale 把长时间无更新的 uploading/processing 任务放回 pending，返回被重置的 id
	RequeueStale(ctx context.Context, before time.Time) ([]string, error)
}

// applyUpdate 在当前行上计算更新后的任务，并校验状态机与 result/error 约束
func applyUpdate(cur model.Task, u TaskUpdate) (model.Task, error) {
	if cur.Status.IsTerminal() {
		return cur, ErrTaskFinalized
	}
	if u.ExpectStatus != nil && cur.Status != *u.ExpectStatus {
		return cur, fmt.Errorf("%w: want %s, got %s", ErrStatusChanged, *u.ExpectStatus, cur.Status)
	}
	next := cur

	to := cur.Status
	if u.Status != nil {
		to = *u.Status
	}
	if !model.CanTransition(cur.Status, to) {
		return cur, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, to)
	}
	if u.Owner != "" && (cur.ClaimedBy == nil || *cur.ClaimedBy != u.Owner) {
		return cur, ErrClaimLost
	}
	next.Status = to

	if u.Progress != nil {
		p := clampProgress(*u.Progress)
		switch {
		case to == model.TaskStatusFailed, to == model.TaskStatusPending:
			next.Progress = p
		case p > cur.Progress:
			next.Progress = p
		}
	}

	switch to {
	case model.TaskStatusCompleted:
		if u.Result == nil || u.Result.IsEmpty() {
			return cur, fmt.Errorf("%w: completed requires a non-empty result", ErrInvalidTransition)
		}
		r := *u.Result
		next.Result = &r
		next.Error = nil
		next.Progress = 100
	case model.TaskStatusFailed:
		msg := "transcription failed"
		if u.Error != nil && *u.Error != "" {
			msg = *u.Error
		}
		next.Error = &msg
		next.Result = nil
		if u.Progress == nil {
			next.Progress = 0
		}
	case model.TaskStatusPending:
		next.Result, next.Error = nil, nil
		next.ClaimedBy, next.ClaimedAt = nil, nil
	default:
		next.Result, next.Error = nil, nil
	}
	if err := next.CheckConsistency(); err != nil {
		return cur, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return next, nil
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
