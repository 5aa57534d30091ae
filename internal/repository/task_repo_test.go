package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azhengyongqin/transcribe-hub/internal/model"
	"github.com/azhengyongqin/transcribe-hub/internal/storage/postgres"
)

// newPostgresRepo 连接 POSTGRES_TEST_DSN 指向的库并执行迁移；未设置时跳过
func newPostgresRepo(t *testing.T) *TaskRepo {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	cfg := postgres.DefaultPoolConfig()
	cfg.MinConns = 1
	db, err := postgres.Open(ctx, dsn, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, postgres.Migrate(ctx, db.SQL))
	_, err = db.Pool.Exec(ctx, `truncate tasks`)
	require.NoError(t, err)
	return NewTaskRepo(db.Pool)
}

func TestTaskRepo_ConcurrentClaimSingleWinner(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()
	task := newTask(1)
	require.NoError(t, repo.Insert(ctx, task))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := repo.Claim(ctx, "w", 100)
			assert.NoError(t, err)
			if got != nil {
				mu.Lock()
				winners = append(winners, got.ID)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{task.ID}, winners)

	got, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusProcessing, got.Status)
	assert.Equal(t, 10, got.Progress)
	require.NotNil(t, got.ClaimedBy)
	assert.Equal(t, "w", *got.ClaimedBy)
}

func TestTaskRepo_GuardedUpdate(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()
	task := newTask(20 * 1024 * 1024)
	require.NoError(t, repo.Insert(ctx, task))

	claimed, err := repo.Claim(ctx, "w1", 15*1024*1024)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusUploading, claimed.Status)

	_, err = repo.Update(ctx, task.ID, TaskUpdate{Status: ptr(model.TaskStatusProcessing), Progress: ptr(50), Owner: "w2"})
	assert.ErrorIs(t, err, ErrClaimLost)

	got, err := repo.Update(ctx, task.ID, TaskUpdate{Status: ptr(model.TaskStatusProcessing), Progress: ptr(50), Owner: "w1"})
	require.NoError(t, err)
	assert.Equal(t, 50, got.Progress)

	got, err = repo.Update(ctx, task.ID, TaskUpdate{
		Status: ptr(model.TaskStatusCompleted),
		Result: &model.Result{Segments: []model.Segment{{Timestamp: "00:01", Content: "hi", Language: "en", Emotion: model.EmotionNeutral}}},
		Owner:  "w1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "hi", got.Result.Segments[0].Content)

	_, err = repo.Update(ctx, task.ID, TaskUpdate{Status: ptr(model.TaskStatusFailed), Error: ptr("late")})
	assert.ErrorIs(t, err, ErrTaskFinalized)
}

func TestTaskRepo_RequeueStaleRevokesClaim(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()
	task := newTask(1)
	require.NoError(t, repo.Insert(ctx, task))

	_, err := repo.Claim(ctx, "worker-a", 100)
	require.NoError(t, err)

	ids, err := repo.RequeueStale(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = repo.RequeueStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, ids)

	reclaimed, err := repo.Claim(ctx, "worker-b", 100)
	require.NoError(t, err)
	require.NotNil(t, reclaimed)

	_, err = repo.Update(ctx, task.ID, TaskUpdate{
		Status: ptr(model.TaskStatusCompleted),
		Result: &model.Result{Text: "stale"},
		Owner:  "worker-a",
	})
	assert.ErrorIs(t, err, ErrClaimLost)

	got, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusProcessing, got.Status)
	assert.Equal(t, "worker-b", *got.ClaimedBy)
}
