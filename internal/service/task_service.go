package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/azhengyongqin/transcribe-hub/internal/blob"
	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/media"
	"github.com/azhengyongqin/transcribe-hub/internal/metrics"
	"github.com/azhengyongqin/transcribe-hub/internal/model"
	"github.com/azhengyongqin/transcribe-hub/internal/notify"
	"github.com/azhengyongqin/transcribe-hub/internal/repository"
)

// BlobCleaner 删除媒体文件失败时登记后台重试
type BlobCleaner interface {
	ScheduleBlobCleanup(ctx context.Context, taskID, key string) error
}

// TaskOptions 上传校验参数
type TaskOptions struct {
	MaxUploadBytes   int64
	MaxAudioDuration time.Duration
	DefaultLanguage  string
	// SpoolDir 上传暂存目录，为空时使用系统临时目录
	SpoolDir string
	// Users 校验 X-User-ID 对应的用户存在；为 nil 时只校验格式
	Users repository.UserRepository
}

// Upload 一次上传
type Upload struct {
	FileName string
	Size     int64 // 客户端声明的大小，未知时为 -1
	Body     io.Reader
	OwnerID  string
}

// DeleteOutcome 删除结果
type DeleteOutcome string

const (
	DeleteRemoved   DeleteOutcome = "deleted"
	DeleteCancelled DeleteOutcome = "cancelled"
)

// Transcript 可下载的转写文本
type Transcript struct {
	FileName string
	Content  string
}

// TaskService 面向用户的任务接口：创建、查询、取消/删除、下载
type TaskService struct {
	store   repository.TaskStore
	blobs   blob.Store
	prober  media.Prober
	events  notify.Publisher
	cleaner BlobCleaner
	opts    TaskOptions
}

// NewTaskService 创建任务服务；prober/events/cleaner 可为 nil
func NewTaskService(store repository.TaskStore, blobs blob.Store, prober media.Prober, events notify.Publisher, cleaner BlobCleaner, opts TaskOptions) *TaskService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 500 * 1024 * 1024
	}
	if opts.MaxAudioDuration <= 0 {
		opts.MaxAudioDuration = 5 * time.Hour
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = model.DefaultLanguage
	}
	if events == nil {
		events = notify.Noop{}
	}
	return &TaskService{store: store, blobs: blobs, prober: prober, events: events, cleaner: cleaner, opts: opts}
}

// MaxUploadBytes 上传大小上限
func (s *TaskService) MaxUploadBytes() int64 { return s.opts.MaxUploadBytes }

// Create 校验并保存上传文件，插入 pending 任务
func (s *TaskService) Create(ctx context.Context, up Upload) (*model.Task, error) {
	name := filepath.Base(up.FileName)
	if up.FileName == "" || name == "." || name == string(filepath.Separator) {
		return nil, invalid("file", "file is required")
	}
	if !media.Supported(name) {
		return nil, invalid("file", "unsupported file format %q", filepath.Ext(name))
	}
	if up.Size > s.opts.MaxUploadBytes {
		return nil, s.tooLarge()
	}
	if err := s.checkOwner(ctx, up.OwnerID); err != nil {
		return nil, err
	}

	spool, size, err := s.spool(up.Body, filepath.Ext(name))
	if err != nil {
		return nil, err
	}
	defer os.Remove(spool)

	duration, err := s.probe(ctx, spool)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		ID:       uuid.NewString(),
		FileName: name,
		FileSize: size,
		MimeType: media.MimeType(name),
		Duration: duration.Seconds(),
	}
	if up.OwnerID != "" {
		owner := up.OwnerID
		task.OwnerID = &owner
	}

	if err := s.putBlob(ctx, task.BlobKey(), spool, size); err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, task); err != nil {
		s.removeBlob(ctx, task)
		return nil, fmt.Errorf("insert task: %w", err)
	}

	metrics.RecordTaskCreated()
	log := logger.WithTaskID(task.ID)
	log.Info().
		Str("file_name", task.FileName).
		Int64("file_size", task.FileSize).
		Float64("duration_seconds", task.Duration).
		Msg("任务已创建")

	if err := s.events.Publish(ctx, notify.Event{Type: notify.EventTaskCreated, TaskID: task.ID}); err != nil {
		log.Warn().Err(err).Msg("发布任务创建事件失败")
	}
	return task, nil
}

func (s *TaskService) checkOwner(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return nil
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		return invalid("owner_id", "must be a uuid")
	}
	if s.opts.Users == nil {
		return nil
	}
	_, err := s.opts.Users.FindByID(ctx, ownerID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return invalid("owner_id", "unknown user")
	case err != nil:
		return fmt.Errorf("lookup owner: %w", err)
	}
	return nil
}

func (s *TaskService) tooLarge() error {
	if s.opts.MaxUploadBytes < 1024*1024 {
		return invalid("file", "file exceeds the %d byte limit", s.opts.MaxUploadBytes)
	}
	return invalid("file", "file exceeds the %d MiB limit", s.opts.MaxUploadBytes/(1024*1024))
}

// spool 把上传内容写入本地临时文件，超过上限时立即停止
func (s *TaskService) spool(r io.Reader, ext string) (string, int64, error) {
	if r == nil {
		return "", 0, invalid("file", "file is required")
	}
	f, err := os.CreateTemp(s.opts.SpoolDir, "upload-*"+ext)
	if err != nil {
		return "", 0, fmt.Errorf("create spool file: %w", err)
	}
	path := f.Name()

	n, err := io.Copy(f, io.LimitReader(r, s.opts.MaxUploadBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		os.Remove(path)
		return "", 0, fmt.Errorf("spool upload: %w", err)
	case n > s.opts.MaxUploadBytes:
		os.Remove(path)
		return "", 0, s.tooLarge()
	case n == 0:
		os.Remove(path)
		return "", 0, invalid("file", "file is empty")
	}
	return path, n, nil
}

func (s *TaskService) probe(ctx context.Context, path string) (time.Duration, error) {
	if s.prober == nil {
		return 0, nil
	}
	d, err := s.prober.Duration(ctx, path)
	switch {
	case errors.Is(err, media.ErrProbeUnavailable):
		logger.L.Warn().Err(err).Msg("ffprobe 不可用，跳过时长校验")
		return 0, nil
	case err != nil:
		return 0, invalid("file", "could not read audio duration")
	case d > s.opts.MaxAudioDuration:
		return 0, invalid("file", "audio duration %s exceeds the %s limit", d.Round(time.Second), s.opts.MaxAudioDuration)
	}
	return d, nil
}

func (s *TaskService) putBlob(ctx context.Context, key, path string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open spool file: %w", err)
	}
	defer f.Close()

	if err := s.blobs.Put(ctx, key, f, size); err != nil {
		metrics.RecordError("api", "blob_put")
		return fmt.Errorf("store upload: %w", err)
	}
	return nil
}

// removeBlob 删除媒体文件；失败时登记后台清理
func (s *TaskService) removeBlob(ctx context.Context, t *model.Task) {
	key := t.BlobKey()
	err := s.blobs.Delete(ctx, key)
	if err == nil {
		return
	}
	metrics.RecordError("api", "blob_delete")
	log := logger.WithTaskID(t.ID)
	if s.cleaner != nil {
		if serr := s.cleaner.ScheduleBlobCleanup(ctx, t.ID, key); serr == nil {
			log.Warn().Err(err).Str("key", key).Msg("删除媒体文件失败，已登记后台清理")
			return
		}
	}
	log.Error().Err(err).Str("key", key).Msg("删除媒体文件失败")
}

// List 按创建时间倒序
func (s *TaskService) List(ctx context.Context, f repository.ListTasksFilter) ([]model.Task, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("status", "unknown status %q", f.Status)
	}
	if f.OwnerID != "" {
		if _, err := uuid.Parse(f.OwnerID); err != nil {
			return nil, invalid("owner_id", "must be a uuid")
		}
	}
	return s.store.List(ctx, f)
}

// Get 获取任务；非法 id 视为不存在
func (s *TaskService) Get(ctx context.Context, id string) (*model.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// cancelAttempts Delete 在状态并发变化时的重试次数
const cancelAttempts = 3

// Delete 终态任务删除行与媒体文件；pending/uploading/processing 任务改为 cancelled 并保留行。
// 取消是以读到的状态为条件的写入，后续处理按写入时的状态决定
func (s *TaskService) Delete(ctx context.Context, id string) (DeleteOutcome, error) {
	for attempt := 0; attempt < cancelAttempts; attempt++ {
		t, err := s.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if t.Status.IsTerminal() {
			return s.remove(ctx, t)
		}

		prev := t.Status
		cancelled := model.TaskStatusCancelled
		_, err = s.store.Update(ctx, id, repository.TaskUpdate{Status: &cancelled, ExpectStatus: &prev})
		switch {
		case errors.Is(err, repository.ErrStatusChanged), errors.Is(err, repository.ErrTaskFinalized):
			// 读取后状态已变化，重新读取
			continue
		case err != nil:
			return "", fmt.Errorf("cancel task: %w", err)
		}
		s.afterCancel(ctx, t, prev)
		return DeleteCancelled, nil
	}
	return "", fmt.Errorf("cancel task: %w", repository.ErrStatusChanged)
}

// afterCancel pending 任务没有 worker 持有，直接删除媒体文件；其余通知持有它的 worker
func (s *TaskService) afterCancel(ctx context.Context, t *model.Task, prev model.TaskStatus) {
	log := logger.WithTaskID(t.ID).With().Str("status", string(prev)).Logger()
	if prev == model.TaskStatusPending {
		s.removeBlob(ctx, t)
		metrics.RecordTaskFinished(string(model.TaskStatusCancelled), "", 0)
	} else if err := s.events.Publish(ctx, notify.Event{Type: notify.EventTaskCancelled, TaskID: t.ID}); err != nil {
		log.Warn().Err(err).Msg("发布取消事件失败，worker 将在下一个检查点发现取消")
	}
	log.Info().Msg("任务已取消")
}

func (s *TaskService) remove(ctx context.Context, t *model.Task) (DeleteOutcome, error) {
	if err := s.store.Delete(ctx, t.ID); err != nil {
		return "", err
	}
	s.removeBlob(ctx, t)
	log := logger.WithTaskID(t.ID)
	log.Info().Msg("任务已删除")
	return DeleteRemoved, nil
}

// Download 渲染已完成任务的转写文本
func (s *TaskService) Download(ctx context.Context, id string) (*Transcript, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TaskStatusCompleted || t.Result == nil {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCompleted, t.Status)
	}
	return &Transcript{
		FileName: model.DownloadFileName(t.FileName),
		Content:  model.RenderText(t.Result, s.opts.DefaultLanguage),
	}, nil
}
