package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azhengyongqin/transcribe-hub/internal/model"
)

func ptr[T any](v T) *T { return &v }

func newTask(size int64) *model.Task {
	return &model.Task{ID: uuid.NewString(), FileName: "a.mp3", FileSize: size}
}

func TestApplyUpdate_Completed(t *testing.T) {
	cur := model.Task{Status: model.TaskStatusProcessing, Progress: 30}

	next, err := applyUpdate(cur, TaskUpdate{
		Status: ptr(model.TaskStatusCompleted),
		Result: &model.Result{Text: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, next.Status)
	assert.Equal(t, 100, next.Progress)
	assert.Nil(t, next.Error)
	assert.NoError(t, next.CheckConsistency())
}

func TestApplyUpdate_CompletedNeedsResult(t *testing.T) {
	cur := model.Task{Status: model.TaskStatusProcessing}

	_, err := applyUpdate(cur, TaskUpdate{Status: ptr(model.TaskStatusCompleted)})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = applyUpdate(cur, TaskUpdate{Status: ptr(model.TaskStatusCompleted), Result: &model.Result{}})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyUpdate_Failed(t *testing.T) {
	cur := model.Task{Status: model.TaskStatusUploading, Progress: 50}

	next, err := applyUpdate(cur, TaskUpdate{Status: ptr(model.TaskStatusFailed), Error: ptr("boom")})
	require.NoError(t, err)
	assert.Equal(t, 0, next.Progress)
	assert.Equal(t, "boom", *next.Error)
	assert.NoError(t, next.CheckConsistency())
}

func TestApplyUpdate_ProgressNeverDecreases(t *testing.T) {
	cur := model.Task{Status: model.TaskStatusProcessing, Progress: 50}

	next, err := applyUpdate(cur, TaskUpdate{Progress: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, 50, next.Progress)

	next, err = applyUpdate(cur, TaskUpdate{Progress: ptr(170)})
	require.NoError(t, err)
	assert.Equal(t, 100, next.Progress)
}

func TestApplyUpdate_Terminal(t *testing.T) {
	for _, s := range []model.TaskStatus{model.TaskStatusCompleted, model.TaskStatusFailed, model.TaskStatusCancelled} {
		_, err := applyUpdate(model.Task{Status: s}, TaskUpdate{Status: ptr(model.TaskStatusFailed), Error: ptr("x")})
		assert.ErrorIs(t, err, ErrTaskFinalized, s)
	}
}

func TestApplyUpdate_InvalidTransition(t *testing.T) {
	_, err := applyUpdate(model.Task{Status: model.TaskStatusPending}, TaskUpdate{
		Status: ptr(model.TaskStatusCompleted),
		Result: &model.Result{Text: "x"},
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyUpdate_Owner(t *testing.T) {
	cur := model.Task{Status: model.TaskStatusProcessing, Progress: 30, ClaimedBy: ptr("w1")}

	_, err := applyUpdate(cur, TaskUpdate{Progress: ptr(50), Owner: "w2"})
	assert.ErrorIs(t, err, ErrClaimLost)

	next, err := applyUpdate(cur, TaskUpdate{Progress: ptr(50), Owner: "w1"})
	require.NoError(t, err)
	assert.Equal(t, 50, next.Progress)

	// 被放回 pending 的任务不再属于任何 worker
	_, err = applyUpdate(model.Task{Status: model.TaskStatusPending}, TaskUpdate{Status: ptr(model.TaskStatusProcessing), Owner: "w1"})
	assert.ErrorIs(t, err, ErrClaimLost)

	// 没有 Owner 的写入（取消、reaper）不受限制
	_, err = applyUpdate(cur, TaskUpdate{Status: ptr(model.TaskStatusCancelled)})
	assert.NoError(t, err)
}

func TestApplyUpdate_ExpectStatus(t *testing.T) {
	cur := model.Task{Status: model.TaskStatusProcessing}

	_, err := applyUpdate(cur, TaskUpdate{Status: ptr(model.TaskStatusCancelled), ExpectStatus: ptr(model.TaskStatusPending)})
	assert.ErrorIs(t, err, ErrStatusChanged)

	next, err := applyUpdate(cur, TaskUpdate{Status: ptr(model.TaskStatusCancelled), ExpectStatus: ptr(model.TaskStatusProcessing)})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCancelled, next.Status)
}

func TestMemoryTaskStore_StaleOwnerCannotWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()
	base := time.Now()
	s.SetClock(func() time.Time { return base })

	task := newTask(1)
	require.NoError(t, s.Insert(ctx, task))
	_, err := s.Claim(ctx, "worker-a", 100)
	require.NoError(t, err)

	ids, err := s.RequeueStale(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, []string{task.ID}, ids)

	reclaimed, err := s.Claim(ctx, "worker-b", 100)
	require.NoError(t, err)
	require.NotNil(t, reclaimed)

	_, err = s.Update(ctx, task.ID, TaskUpdate{
		Status: ptr(model.TaskStatusCompleted),
		Result: &model.Result{Text: "stale"},
		Owner:  "worker-a",
	})
	assert.ErrorIs(t, err, ErrClaimLost)

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusProcessing, got.Status)
	assert.Equal(t, "worker-b", *got.ClaimedBy)
	assert.Nil(t, got.Result)
}

func TestMemoryTaskStore_ClaimOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()

	first, second := newTask(10), newTask(20*1024*1024)
	require.NoError(t, s.Insert(ctx, first))
	require.NoError(t, s.Insert(ctx, second))

	got, err := s.Claim(ctx, "w1", 15*1024*1024)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, model.TaskStatusProcessing, got.Status)
	assert.Equal(t, 10, got.Progress)
	assert.Equal(t, "w1", *got.ClaimedBy)

	got, err = s.Claim(ctx, "w1", 15*1024*1024)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, model.TaskStatusUploading, got.Status)

	got, err = s.Claim(ctx, "w1", 15*1024*1024)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryTaskStore_ConcurrentClaimSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()
	require.NoError(t, s.Insert(ctx, newTask(1)))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Claim(ctx, "w", 100)
			assert.NoError(t, err)
			if got != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryTaskStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()
	a, b := newTask(1), newTask(1)
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, b))

	list, err := s.List(ctx, ListTasksFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestMemoryTaskStore_RequeueStale(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()
	base := time.Now()
	s.SetClock(func() time.Time { return base })

	task := newTask(1)
	require.NoError(t, s.Insert(ctx, task))
	_, err := s.Claim(ctx, "w", 100)
	require.NoError(t, err)

	ids, err := s.RequeueStale(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.RequeueStale(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, ids)

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, got.Status)
	assert.Equal(t, 0, got.Progress)
	assert.Nil(t, got.ClaimedBy)
}

func TestMemoryTaskStore_UpdateMissingAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()

	_, err := s.Update(ctx, "missing", TaskUpdate{Progress: ptr(10)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)

	task := newTask(1)
	require.NoError(t, s.Insert(ctx, task))
	require.NoError(t, s.Delete(ctx, task.ID))
	_, err = s.Get(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
