package dto

import (
	"encoding/json"

	"github.com/azhengyongqin/transcribe-hub/internal/model"
)

// ClaimTaskResponse 认领结果；没有任务时 task 为 null
type ClaimTaskResponse struct {
	Task *model.Task `json:"task"`
}

// PatchTaskRequest worker 上报请求；result 可为字符串或结构化对象
type PatchTaskRequest struct {
	TaskID   string          `json:"task_id" binding:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status   string          `json:"status,omitempty" example:"completed"`
	Progress *int            `json:"progress,omitempty" example:"100"`
	Result   json.RawMessage `json:"result,omitempty" swaggertype:"object"`
	Error    *string         `json:"error,omitempty"`
}

// TaskStatusResponse 任务状态
type TaskStatusResponse struct {
	ID       string           `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status   model.TaskStatus `json:"status" example:"processing"`
	Progress int              `json:"progress" example:"30"`
}
