package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/transcribe-hub/internal/server/dto"
	"github.com/azhengyongqin/transcribe-hub/internal/service"
)

// WorkerHandler worker API Handler（api 模式 worker 使用）
type WorkerHandler struct {
	svc *service.WorkerService
}

// NewWorkerHandler 创建 WorkerHandler
func NewWorkerHandler(svc *service.WorkerService) *WorkerHandler {
	return &WorkerHandler{svc: svc}
}

// ClaimTask godoc
// @Summary 认领任务
// @Description 原子认领最早的 pending 任务；没有任务时 task 为 null
// @Tags Worker
// @Produce json
// @Security BearerAuth
// @Param X-Worker-Name header string false "worker 名称"
// @Success 200 {object} dto.ClaimTaskResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /worker/tasks [get]
func (h *WorkerHandler) ClaimTask(c *gin.Context) {
	task, err := h.svc.Claim(c.Request.Context(), c.GetString("worker_name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ClaimTaskResponse{Task: task})
}

// PatchTask godoc
// @Summary 上报进度或终态
// @Tags Worker
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PatchTaskRequest true "更新内容"
// @Success 200 {object} dto.TaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 412 {object} dto.ErrorResponse
// @Router /worker/tasks [patch]
func (h *WorkerHandler) PatchTask(c *gin.Context) {
	var req dto.PatchTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	task, err := h.svc.Patch(c.Request.Context(), service.PatchTask{
		WorkerName: c.GetString("worker_name"),
		TaskID:     req.TaskID,
		Status:     req.Status,
		Progress:   req.Progress,
		Result:     req.Result,
		Error:      req.Error,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TaskResponse{Task: task})
}

// GetTaskStatus godoc
// @Summary 查询任务状态
// @Tags Worker
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务 ID"
// @Success 200 {object} dto.TaskStatusResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /worker/tasks/{id} [get]
func (h *WorkerHandler) GetTaskStatus(c *gin.Context) {
	task, err := h.svc.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TaskStatusResponse{ID: task.ID, Status: task.Status, Progress: task.Progress})
}

// DownloadFile godoc
// @Summary 下载任务媒体文件
// @Tags Worker
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "任务 ID"
// @Success 200 {file} file
// @Failure 404 {object} dto.ErrorResponse
// @Router /worker/tasks/{id}/file [get]
func (h *WorkerHandler) DownloadFile(c *gin.Context) {
	task, rc, err := h.svc.OpenFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	mimeType := task.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, task.FileSize, mimeType, rc, map[string]string{
		"Content-Disposition": attachment(task.FileName),
	})
}

// DeleteFile godoc
// @Summary 删除任务媒体文件
// @Tags Worker
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务 ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /worker/tasks/{id}/file [delete]
func (h *WorkerHandler) DeleteFile(c *gin.Context) {
	if err := h.svc.DeleteFile(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Status: "ok"})
}
