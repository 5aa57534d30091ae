package dto

import "github.com/azhengyongqin/transcribe-hub/internal/model"

// TaskListRequest 任务列表查询请求
type TaskListRequest struct {
	Status  string `form:"status" example:"pending"`
	OwnerID string `form:"owner_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Limit   int    `form:"limit" example:"20"`
	Offset  int    `form:"offset" example:"0"`
}

// TaskListResponse 任务列表响应
type TaskListResponse struct {
	Items []model.Task `json:"items"`
	Total int          `json:"total"`
}

// TaskResponse 任务详情响应
type TaskResponse struct {
	Task *model.Task `json:"task"`
}

// DeleteTaskResponse 删除任务响应；result 为 deleted 或 cancelled
type DeleteTaskResponse struct {
	Status string `json:"status" example:"ok"`
	Result string `json:"result" example:"cancelled"`
}
