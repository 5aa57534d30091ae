package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/azhengyongqin/transcribe-hub/internal/blob"
	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/model"
	"github.com/azhengyongqin/transcribe-hub/internal/repository"
	"github.com/azhengyongqin/transcribe-hub/internal/scheduler"
)

// defaultWorkerName 未带 X-Worker-Name 的 worker 使用的认领者名称
const defaultWorkerName = "api-worker"

// PatchTask worker 上报的部分更新；只有当前认领者可以写入
type PatchTask struct {
	WorkerName string
	TaskID     string
	Status   string
	Progress *int
	Result   json.RawMessage
	Error    *string
}

// WorkerService 面向 api 模式 worker 的接口
type WorkerService struct {
	store          repository.TaskStore
	blobs          blob.Store
	cleaner        BlobCleaner
	inlineMaxBytes int64
}

// NewWorkerService 创建 worker 服务；cleaner 可为 nil
func NewWorkerService(store repository.TaskStore, blobs blob.Store, cleaner BlobCleaner, inlineMaxBytes int64) *WorkerService {
	return &WorkerService{store: store, blobs: blobs, cleaner: cleaner, inlineMaxBytes: inlineMaxBytes}
}

// Claim 为指定 worker 认领一个任务；没有任务时返回 (nil, nil)
func (s *WorkerService) Claim(ctx context.Context, workerName string) (*model.Task, error) {
	return scheduler.New(s.store, workerOwner(workerName), s.inlineMaxBytes).Claim(ctx)
}

// Patch 有条件地更新任务
func (s *WorkerService) Patch(ctx context.Context, p PatchTask) (*model.Task, error) {
	if _, err := uuid.Parse(p.TaskID); err != nil {
		return nil, invalid("task_id", "must be a uuid")
	}

	u := repository.TaskUpdate{Owner: workerOwner(p.WorkerName)}
	if p.Status != "" {
		st := model.TaskStatus(p.Status)
		if !st.Valid() {
			return nil, invalid("status", "unknown status %q", p.Status)
		}
		u.Status = &st
	}
	if p.Progress != nil {
		if *p.Progress < 0 || *p.Progress > 100 {
			return nil, invalid("progress", "must be between 0 and 100")
		}
		u.Progress = p.Progress
	}
	if len(p.Result) > 0 && string(p.Result) != "null" {
		r, err := decodeResult(p.Result)
		if err != nil {
			return nil, err
		}
		u.Result = r
	}
	u.Error = p.Error

	t, err := s.store.Update(ctx, p.TaskID, u)
	if err != nil {
		return nil, err
	}
	log := logger.WithTaskID(t.ID)
	log.Debug().
		Str("status", string(t.Status)).
		Int("progress", t.Progress).
		Msg("worker 更新任务")
	return t, nil
}

func workerOwner(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return defaultWorkerName
	}
	return name
}

// decodeResult 接受纯文本字符串或结构化对象
func decodeResult(raw json.RawMessage) (*model.Result, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return &model.Result{Text: text}, nil
	}
	var r model.Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, invalid("result", "must be a string or a structured transcript")
	}
	for i := range r.Segments {
		r.Segments[i].Emotion = model.NormalizeEmotion(string(r.Segments[i].Emotion))
	}
	return &r, nil
}

// GetStatus 查询任务状态（worker 取消检查）
func (s *WorkerService) GetStatus(ctx context.Context, id string) (*model.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// OpenFile 打开任务的媒体文件
func (s *WorkerService) OpenFile(ctx context.Context, id string) (*model.Task, io.ReadCloser, error) {
	t, err := s.GetStatus(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, t.BlobKey())
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: media file", repository.ErrNotFound)
		}
		return nil, nil, err
	}
	return t, rc, nil
}

// DeleteFile 删除任务的媒体文件；删除失败且登记了后台清理时视为成功
func (s *WorkerService) DeleteFile(ctx context.Context, id string) error {
	t, err := s.GetStatus(ctx, id)
	if err != nil {
		return err
	}
	key := t.BlobKey()
	if err := s.blobs.Delete(ctx, key); err != nil {
		if s.cleaner != nil {
			if serr := s.cleaner.ScheduleBlobCleanup(ctx, t.ID, key); serr == nil {
				log := logger.WithTaskID(t.ID)
				log.Warn().Err(err).Msg("删除媒体文件失败，已登记后台清理")
				return nil
			}
		}
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}
