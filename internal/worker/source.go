package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/azhengyongqin/transcribe-hub/internal/blob"
	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/metrics"
	"github.com/azhengyongqin/transcribe-hub/internal/model"
	"github.com/azhengyongqin/transcribe-hub/internal/repository"
	"github.com/azhengyongqin/transcribe-hub/internal/scheduler"
	"github.com/azhengyongqin/transcribe-hub/sdk"
)

// Source worker 的任务来源：直连数据库或通过 worker API
type Source interface {
	// Claim 认领一个任务；没有任务时返回 (nil, nil)
	Claim(ctx context.Context) (*model.Task, error)

	// Status 查询任务当前状态
	Status(ctx context.Context, taskID string) (model.TaskStatus, error)

	// Update 有条件更新；终态返回 repository.ErrTaskFinalized
	Update(ctx context.Context, taskID string, u repository.TaskUpdate) error

	// Fetch 把媒体文件写入 w；文件不存在返回 blob.ErrNotFound
	Fetch(ctx context.Context, t *model.Task, w io.Writer) error

	// Release 删除媒体文件，失败只记录日志
	Release(ctx context.Context, t *model.Task)
}

// BlobCleaner 删除失败时登记后台重试
type BlobCleaner interface {
	ScheduleBlobCleanup(ctx context.Context, taskID, key string) error
}

// DBSource 直连 Task Store 与 blob 存储
type DBSource struct {
	claimer scheduler.Claimer
	store   repository.TaskStore
	blobs   blob.Store
	cleaner BlobCleaner
}

// NewDBSource 创建数据库模式的来源；cleaner 可为 nil
func NewDBSource(claimer scheduler.Claimer, store repository.TaskStore, blobs blob.Store, cleaner BlobCleaner) *DBSource {
	return &DBSource{claimer: claimer, store: store, blobs: blobs, cleaner: cleaner}
}

func (s *DBSource) Claim(ctx context.Context) (*model.Task, error) {
	return s.claimer.Claim(ctx)
}

func (s *DBSource) Status(ctx context.Context, taskID string) (model.TaskStatus, error) {
	t, err := s.store.Get(ctx, taskID)
	if err != nil {
		return "", err
	}
	return t.Status, nil
}

func (s *DBSource) Update(ctx context.Context, taskID string, u repository.TaskUpdate) error {
	_, err := s.store.Update(ctx, taskID, u)
	return err
}

func (s *DBSource) Fetch(ctx context.Context, t *model.Task, w io.Writer) error {
	rc, err := s.blobs.Open(ctx, t.BlobKey())
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("copy media: %w", err)
	}
	return nil
}

func (s *DBSource) Release(ctx context.Context, t *model.Task) {
	key := t.BlobKey()
	err := s.blobs.Delete(ctx, key)
	if err == nil {
		return
	}

	log := logger.WithTaskID(t.ID)
	metrics.RecordError("worker", "blob_delete")
	if s.cleaner == nil {
		log.Error().Err(err).Str("key", key).Msg("删除媒体文件失败")
		return
	}
	if serr := s.cleaner.ScheduleBlobCleanup(ctx, t.ID, key); serr != nil {
		log.Error().Err(serr).Str("key", key).Msg("登记媒体文件清理任务失败")
		return
	}
	log.Warn().Err(err).Str("key", key).Msg("删除媒体文件失败，已登记后台清理")
}

// APISource 通过 worker API 获取与上报任务（worker 无数据库访问权限时使用）
type APISource struct {
	client *sdk.Client
	retry  sdk.ReportRetryConfig
}

// NewAPISource 创建 API 模式的来源
func NewAPISource(c *sdk.Client) *APISource {
	return &APISource{client: c, retry: sdk.DefaultReportRetryConfig()}
}

func (s *APISource) Claim(ctx context.Context) (*model.Task, error) {
	t, err := s.client.ClaimTask(ctx)
	if err != nil || t == nil {
		return nil, err
	}
	return fromSDKTask(t)
}

func (s *APISource) Status(ctx context.Context, taskID string) (model.TaskStatus, error) {
	st, err := s.client.GetTaskStatus(ctx, taskID)
	if err != nil {
		return "", mapSDKError(err)
	}
	return model.TaskStatus(st), nil
}

func (s *APISource) Update(ctx context.Context, taskID string, u repository.TaskUpdate) error {
	req := sdk.UpdateTaskRequest{TaskID: taskID, Progress: u.Progress, Error: u.Error}
	if u.Status != nil {
		st := sdk.TaskStatus(*u.Status)
		req.Status = &st
	}
	if u.Result != nil {
		raw, err := json.Marshal(u.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		req.Result = raw
	}

	_, err := sdk.ReportWithRetry(ctx, s.client, req, s.retry)
	return mapSDKError(err)
}

func (s *APISource) Fetch(ctx context.Context, t *model.Task, w io.Writer) error {
	_, err := s.client.DownloadFile(ctx, t.ID, w)
	if errors.Is(err, sdk.ErrNotFound) {
		return blob.ErrNotFound
	}
	return err
}

func (s *APISource) Release(ctx context.Context, t *model.Task) {
	if err := s.client.DeleteFile(ctx, t.ID); err != nil && !errors.Is(err, sdk.ErrNotFound) {
		metrics.RecordError("worker", "blob_delete")
		log := logger.WithTaskID(t.ID)
		log.Error().Err(err).Msg("删除服务端媒体文件失败")
	}
}

func fromSDKTask(t *sdk.Task) (*model.Task, error) {
	out := &model.Task{
		ID:        t.ID,
		FileName:  t.FileName,
		FileSize:  t.FileSize,
		MimeType:  t.MimeType,
		Status:    model.TaskStatus(t.Status),
		Progress:  t.Progress,
		Error:     t.Error,
		ClaimedBy: t.ClaimedBy,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if !out.Status.Valid() {
		return nil, fmt.Errorf("unknown task status %q", t.Status)
	}
	return out, nil
}

func mapSDKError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sdk.ErrTaskFinalized):
		return fmt.Errorf("%w: %w", repository.ErrTaskFinalized, err)
	case errors.Is(err, sdk.ErrNotFound):
		return fmt.Errorf("%w: %w", repository.ErrNotFound, err)
	case errors.Is(err, sdk.ErrClaimLost):
		return fmt.Errorf("%w: %w", repository.ErrClaimLost, err)
	}
	return err
}
