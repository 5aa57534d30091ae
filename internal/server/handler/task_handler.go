package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/transcribe-hub/internal/middleware"
	"github.com/azhengyongqin/transcribe-hub/internal/model"
	"github.com/azhengyongqin/transcribe-hub/internal/repository"
	"github.com/azhengyongqin/transcribe-hub/internal/server/dto"
	"github.com/azhengyongqin/transcribe-hub/internal/service"
)

// TaskHandler 任务相关 API Handler
type TaskHandler struct {
	svc *service.TaskService
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// CreateTask godoc
// @Summary 上传音频创建转写任务
// @Description multipart 表单字段 file；校验格式、大小与时长后创建 pending 任务
// @Tags Tasks
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "音频文件"
// @Success 201 {object} dto.TaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	mr, err := c.Request.MultipartReader()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "multipart form with a file field is required"})
		return
	}

	// 流式读取，直到找到 file 字段
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "file is required"})
			return
		}
		if err != nil {
			writeError(c, badMultipart(err))
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		task, err := h.svc.Create(c.Request.Context(), service.Upload{
			FileName: part.FileName(),
			Size:     -1,
			Body:     part,
			OwnerID:  middleware.SanitizeString(c.GetHeader("X-User-ID")),
		})
		_ = part.Close()
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.TaskResponse{Task: task})
		return
	}
}

// badMultipart 上传超限保持原样，其余解析错误视为校验失败
func badMultipart(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return &service.ValidationError{Field: "file", Message: "malformed multipart body"}
}

// ListTasks godoc
// @Summary 任务列表
// @Description 按创建时间倒序返回任务
// @Tags Tasks
// @Produce json
// @Param status query string false "状态过滤"
// @Param owner_id query string false "所有者"
// @Param limit query int false "返回数量"
// @Param offset query int false "偏移量"
// @Success 200 {object} dto.TaskListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	var req dto.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	items, err := h.svc.List(c.Request.Context(), repository.ListTasksFilter{
		OwnerID: req.OwnerID,
		Status:  model.TaskStatus(req.Status),
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TaskListResponse{Items: items, Total: len(items)})
}

// GetTask godoc
// @Summary 任务详情
// @Tags Tasks
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} dto.TaskResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TaskResponse{Task: task})
}

// DeleteTask godoc
// @Summary 删除或取消任务
// @Description 终态任务删除记录与媒体文件；未结束的任务改为 cancelled
// @Tags Tasks
// @Produce json
// @Param id query string false "任务 ID（也可放在路径中）"
// @Success 200 {object} dto.DeleteTaskResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tasks [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		id = strings.TrimSpace(c.Query("id"))
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "id is required"})
		return
	}

	out, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DeleteTaskResponse{Status: "ok", Result: string(out)})
}

// DownloadTask godoc
// @Summary 下载转写文本
// @Description 仅已完成的任务可下载；结构化结果渲染为带时间戳与说话人的纯文本
// @Tags Tasks
// @Produce plain
// @Param id path string true "任务 ID"
// @Success 200 {string} string "转写文本"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tasks/{id}/download [get]
func (h *TaskHandler) DownloadTask(c *gin.Context) {
	tr, err := h.svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", attachment(tr.FileName))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(tr.Content))
}

func attachment(fileName string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
}
