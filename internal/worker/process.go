package workers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/azhengyongqin/transcribe-hub/internal/blob"
	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/internal/media"
	"github.com/azhengyongqin/transcribe-hub/internal/metrics"
	"github.com/azhengyongqin/transcribe-hub/internal/model"
	"github.com/azhengyongqin/transcribe-hub/internal/repository"
	"github.com/azhengyongqin/transcribe-hub/internal/transcriber"
)

const (
	ProgressClaimed = 10
	ProgressStaged  = 30
	ProgressReady   = 50

	// finalizeTimeout 终态写入与清理的超时，不受任务取消影响
	finalizeTimeout = 30 * time.Second
)

// ErrUploadMissing 媒体文件不存在
var ErrUploadMissing = errors.New("Upload file not found")

// outcome 一次处理的结局
type outcome string

const (
	outcomeCompleted outcome = "completed"
	outcomeFailed    outcome = "failed"
	outcomeCancelled outcome = "cancelled"
	outcomeRequeued  outcome = "requeued"
	// outcomeLost 认领已被收回（stale reaper 放回后被其他 worker 认领），行与媒体文件归新的持有者
	outcomeLost outcome = "lost"
	// outcomeAbandoned 终态写入失败，行保持 uploading/processing，由 stale reaper 回收
	outcomeAbandoned outcome = "abandoned"
)

// releasesMedia 是否删除媒体文件；放回 pending 或未能写入终态时保留给下一次认领
func (o outcome) releasesMedia() bool {
	return o == outcomeCompleted || o == outcomeFailed || o == outcomeCancelled
}

// process claimed -> stage -> inline|staged -> terminal
func (p *Pool) process(ctx context.Context, t *model.Task) {
	path := p.client.PathFor(t.FileSize)
	log := logger.WithTaskID(t.ID).With().
		Str("worker", p.opts.Name).
		Str("path", path).
		Logger()

	tctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if err := p.registry.Add(t.ID, path, func() { cancel(nil) }); err != nil {
		log.Warn().Err(err).Msg("任务已在处理中，跳过")
		return
	}
	defer p.registry.Remove(t.ID)

	hctx, stopHeartbeat := context.WithCancel(tctx)
	hbDone := make(chan struct{})
	go p.heartbeat(hctx, t.ID, cancel, hbDone)

	metrics.TasksInFlight.Inc()
	defer metrics.TasksInFlight.Dec()

	start := time.Now()
	log.Info().Str("file_name", t.FileName).Int64("file_size", t.FileSize).Msg("开始处理任务")

	res, err := p.execute(tctx, t, path, log)
	stopHeartbeat()
	<-hbDone

	fctx, fcancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer fcancel()

	out := p.finalize(fctx, ctx, tctx, t, res, err, log)
	if out.releasesMedia() {
		p.src.Release(fctx, t)
	}

	if out != outcomeRequeued && out != outcomeAbandoned && out != outcomeLost {
		metrics.RecordTaskFinished(string(out), path, time.Since(start).Seconds())
	}
	log.Info().Str("outcome", string(out)).Dur("elapsed", time.Since(start)).Msg("任务处理结束")
}

// execute 执行转写；每个检查点都是一次有条件写入，任务已进入终态时返回 ErrTaskFinalized
func (p *Pool) execute(ctx context.Context, t *model.Task, path string, log zerolog.Logger) (*model.Result, error) {
	st, err := p.src.Status(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("check status: %w", err)
	}
	if st.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", repository.ErrTaskFinalized, st)
	}

	local, size, err := p.stage(ctx, t)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(local); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", local).Msg("删除本地临时文件失败")
		}
	}()

	// 不支持暂存的 provider 不会有上传阶段，直接进入 processing
	staged := model.TaskStatusUploading
	if path == transcriber.PathInline {
		staged = model.TaskStatusProcessing
	}
	if t.Status == model.TaskStatusProcessing {
		staged = model.TaskStatusProcessing
	}
	if err := p.checkpoint(ctx, t.ID, staged, ProgressStaged); err != nil {
		return nil, err
	}
	log.Debug().Int64("bytes", size).Msg("媒体文件已就绪")

	mimeType := t.MimeType
	if mimeType == "" {
		mimeType = media.MimeType(t.FileName)
	}

	return p.client.Transcribe(ctx, transcriber.Media{
		Path:     local,
		FileName: t.FileName,
		MimeType: mimeType,
		Size:     size,
	}, transcriber.Hooks{
		OnFileReady: func(ctx context.Context) error {
			return p.checkpoint(ctx, t.ID, model.TaskStatusProcessing, ProgressReady)
		},
	})
}

// stage 把媒体文件复制到本地临时目录
func (p *Pool) stage(ctx context.Context, t *model.Task) (string, int64, error) {
	local := filepath.Join(p.opts.TempDir, model.BlobKey(t.ID, t.FileName))
	f, err := os.Create(local)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	if err := p.src.Fetch(ctx, t, f); err != nil {
		f.Close()
		os.Remove(local)
		if errors.Is(err, blob.ErrNotFound) {
			return "", 0, ErrUploadMissing
		}
		return "", 0, fmt.Errorf("stage media: %w", err)
	}

	info, err := f.Stat()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(local)
		return "", 0, fmt.Errorf("stage media: %w", err)
	}
	return local, info.Size(), nil
}

// update 以本 worker 的名义写入，认领被收回时返回 repository.ErrClaimLost
func (p *Pool) update(ctx context.Context, taskID string, u repository.TaskUpdate) error {
	u.Owner = p.opts.Name
	return p.src.Update(ctx, taskID, u)
}

// heartbeat 处理期间周期性刷新 updated_at；任务被取消或认领被收回时以对应错误结束 ctx
func (p *Pool) heartbeat(ctx context.Context, taskID string, cancel context.CancelCauseFunc, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := p.update(ctx, taskID, repository.TaskUpdate{})
		switch {
		case err == nil, ctx.Err() != nil:
		case errors.Is(err, repository.ErrClaimLost), errors.Is(err, repository.ErrTaskFinalized), errors.Is(err, repository.ErrNotFound):
			cancel(err)
			return
		default:
			log := logger.WithTaskID(taskID)
			log.Warn().Err(err).Msg("心跳写入失败")
		}
	}
}

func (p *Pool) checkpoint(ctx context.Context, taskID string, status model.TaskStatus, progress int) error {
	err := p.update(ctx, taskID, repository.TaskUpdate{Status: &status, Progress: &progress})
	if err != nil {
		return fmt.Errorf("checkpoint %d: %w", progress, err)
	}
	log := logger.WithTaskID(taskID)
	log.Debug().Str("status", string(status)).Int("progress", progress).Msg("进度已更新")
	return nil
}

// finalize 写入终态。parent 结束表示进程退出，tctx 单独结束表示任务被取消
func (p *Pool) finalize(fctx, parent, tctx context.Context, t *model.Task, res *model.Result, runErr error, log zerolog.Logger) outcome {
	if errors.Is(runErr, repository.ErrClaimLost) || errors.Is(context.Cause(tctx), repository.ErrClaimLost) {
		log.Warn().Msg("认领已被收回，放弃处理结果")
		return outcomeLost
	}
	switch {
	case runErr == nil:
		st := model.TaskStatusCompleted
		progress := 100
		return p.terminal(fctx, t, repository.TaskUpdate{Status: &st, Progress: &progress, Result: res}, outcomeCompleted, log)

	case errors.Is(runErr, repository.ErrTaskFinalized), errors.Is(runErr, repository.ErrNotFound):
		log.Info().Err(runErr).Msg("任务已被取消或删除")
		return outcomeCancelled

	case parent.Err() != nil:
		st := model.TaskStatusPending
		progress := 0
		if err := p.update(fctx, t.ID, repository.TaskUpdate{Status: &st, Progress: &progress}); err != nil {
			if errors.Is(err, repository.ErrTaskFinalized) {
				return outcomeCancelled
			}
			if errors.Is(err, repository.ErrClaimLost) {
				return outcomeLost
			}
			log.Error().Err(err).Msg("进程退出时放回 pending 失败")
			return outcomeAbandoned
		}
		log.Warn().Msg("进程退出，任务已放回 pending")
		return outcomeRequeued

	case tctx.Err() != nil:
		log.Info().Msg("任务已取消，处理中止")
		return outcomeCancelled
	}

	msg := runErr.Error()
	st := model.TaskStatusFailed
	progress := 0
	log.Error().Err(runErr).Msg("转写失败")
	return p.terminal(fctx, t, repository.TaskUpdate{Status: &st, Progress: &progress, Error: &msg}, outcomeFailed, log)
}

func (p *Pool) terminal(ctx context.Context, t *model.Task, u repository.TaskUpdate, want outcome, log zerolog.Logger) outcome {
	err := p.update(ctx, t.ID, u)
	switch {
	case err == nil:
		return want
	case errors.Is(err, repository.ErrTaskFinalized), errors.Is(err, repository.ErrNotFound):
		log.Info().Str("discarded", string(want)).Msg("任务已被取消，丢弃处理结果")
		return outcomeCancelled
	case errors.Is(err, repository.ErrClaimLost):
		log.Warn().Str("discarded", string(want)).Msg("认领已被收回，丢弃处理结果")
		return outcomeLost
	}
	metrics.RecordError("worker", "finalize")
	log.Error().Err(err).Str("want", string(want)).Msg("写入终态失败")
	return outcomeAbandoned
}
