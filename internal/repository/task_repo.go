package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/azhengyongqin/transcribe-hub/internal/model"
)

const taskColumns = `id::text, file_name, file_size, mime_type, duration_seconds, status::text, progress,
result, error, owner_id::text, claimed_by, claimed_at, created_at, updated_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Insert(ctx context.Context, t *model.Task) error {
	if t.ID == "" {
		return errors.New("task id 不能为空")
	}
	row := r.pool.QueryRow(ctx, `
insert into tasks(id, file_name, file_size, mime_type, duration_seconds, status, progress, owner_id)
values ($1, $2, $3, $4, $5, 'pending', 0, $6::uuid)
returning created_at, updated_at
`, t.ID, t.FileName, t.FileSize, t.MimeType, t.Duration, t.OwnerID)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	t.Status = model.TaskStatusPending
	t.Progress = 0
	return nil
}

func (r *TaskRepo) Get(ctx context.Context, id string) (*model.Task, error) {
	row := r.pool.QueryRow(ctx, `select `+taskColumns+` from tasks where id = $1`, id)
	return scanTask(row)
}

func (r *TaskRepo) List(ctx context.Context, f ListTasksFilter) ([]model.Task, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
select `+taskColumns+`
from tasks
where ($1 = '' or owner_id::text = $1)
  and ($2 = '' or status::text = $2)
order by created_at desc
limit $3 offset $4
`, f.OwnerID, string(f.Status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update 在事务内锁行后校验迁移，再写回
func (r *TaskRepo) Update(ctx context.Context, id string, u TaskUpdate) (*model.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := scanTask(tx.QueryRow(ctx, `select `+taskColumns+` from tasks where id = $1 for update`, id))
	if err != nil {
		return nil, err
	}

	next, err := applyUpdate(*cur, u)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
update tasks
set status = $2::task_status,
    progress = $3,
    result = $4,
    error = $5,
    claimed_by = $6,
    claimed_at = $7,
    updated_at = now()
where id = $1
  and status::text <> all($8::text[])
returning `+taskColumns, id, string(next.Status), next.Progress, resultParam(next.Result), next.Error, next.ClaimedBy, next.ClaimedAt,
		model.TerminalStatuses())
	updated, err := scanTask(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTaskFinalized
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `delete from tasks where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Claim 单条语句完成“选最早 pending + 加锁跳过已锁 + 改状态”
func (r *TaskRepo) Claim(ctx context.Context, workerName string, inlineMaxBytes int64) (*model.Task, error) {
	row := r.pool.QueryRow(ctx, `
update tasks
set status = case when file_size > $2 then 'uploading'::task_status else 'processing'::task_status end,
    progress = 10,
    claimed_by = $1,
    claimed_at = now(),
    updated_at = now()
where id = (
    select id from tasks
    where status = 'pending'
    order by created_at asc
    limit 1
    for update skip locked
)
returning `+taskColumns, workerName, inlineMaxBytes)
	t, err := scanTask(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func (r *TaskRepo) RequeueStale(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
update tasks
set status = 'pending', progress = 0, claimed_by = null, claimed_at = null, updated_at = now()
where status in ('uploading', 'processing')
  and updated_at < $1
returning id::text
`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var (
		t      model.Task
		status string
		result []byte
	)
	err := row.Scan(&t.ID, &t.FileName, &t.FileSize, &t.MimeType, &t.Duration, &status, &t.Progress,
		&result, &t.Error, &t.OwnerID, &t.ClaimedBy, &t.ClaimedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	if result != nil {
		var res model.Result
		if err := res.Scan(result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		t.Result = &res
	}
	return &t, nil
}

func resultParam(r *model.Result) any {
	if r == nil {
		return nil
	}
	v, _ := r.Value()
	return v
}
