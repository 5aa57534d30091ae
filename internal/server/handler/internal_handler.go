package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/transcribe-hub/internal/server/dto"
	"github.com/azhengyongqin/transcribe-hub/internal/service"
)

// InternalHandler 内部接口 Handler
type InternalHandler struct {
	svc *service.InternalService
}

// NewInternalHandler 创建 InternalHandler
func NewInternalHandler(svc *service.InternalService) *InternalHandler {
	return &InternalHandler{svc: svc}
}

// UserTasks godoc
// @Summary 查询用户的任务
// @Description 按 email 或 user_id 查找用户，返回其任务（可按状态过滤）
// @Tags Internal
// @Produce json
// @Param X-Internal-Token header string true "内部接口 token"
// @Param email query string false "用户邮箱"
// @Param user_id query string false "用户 ID"
// @Param status query string false "状态过滤"
// @Success 200 {object} dto.UserTasksResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /internal/users/tasks [get]
func (h *InternalHandler) UserTasks(c *gin.Context) {
	var req dto.UserTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	user, items, err := h.svc.UserTasks(c.Request.Context(), service.UserTasksQuery{
		Email:  req.Email,
		UserID: req.UserID,
		Status: req.Status,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UserTasksResponse{User: user, Items: items, Total: len(items)})
}
