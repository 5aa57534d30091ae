package sdk

import (
	"encoding/json"
	"time"
)

// Task worker API 返回的任务
type Task struct {
	ID        string          `json:"id"`
	FileName  string          `json:"file_name"`
	FileSize  int64           `json:"file_size"`
	MimeType  string          `json:"mime_type,omitempty"`
	Status    TaskStatus      `json:"status"`
	Progress  int             `json:"progress"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *string         `json:"error,omitempty"`
	ClaimedBy *string         `json:"claimed_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// UpdateTaskRequest PATCH /worker/tasks 请求体；nil 字段不修改
type UpdateTaskRequest struct {
	TaskID   string          `json:"task_id"`
	Status   *TaskStatus     `json:"status,omitempty"`
	Progress *int            `json:"progress,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    *string         `json:"error,omitempty"`
}
