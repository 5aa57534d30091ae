package dto

import (
	"github.com/azhengyongqin/transcribe-hub/internal/model"
	"github.com/azhengyongqin/transcribe-hub/internal/repository"
)

// UserTasksRequest 按用户查询任务
type UserTasksRequest struct {
	Email  string `form:"email" example:"alice@example.com"`
	UserID string `form:"user_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status string `form:"status" example:"completed"`
	Limit  int    `form:"limit" example:"20"`
	Offset int    `form:"offset" example:"0"`
}

// UserTasksResponse 用户及其任务
type UserTasksResponse struct {
	User  *repository.User `json:"user"`
	Items []model.Task     `json:"items"`
	Total int              `json:"total"`
}
