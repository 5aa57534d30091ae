package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/transcribe-hub/internal/repository"
	"github.com/azhengyongqin/transcribe-hub/internal/server/dto"
	"github.com/azhengyongqin/transcribe-hub/internal/service"
)

// writeError 按错误类型映射 HTTP 状态码
func writeError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case service.IsValidation(err):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &maxErr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "file exceeds the upload limit"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
	case errors.Is(err, service.ErrNotCompleted):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "task is not completed"})
	case errors.Is(err, repository.ErrTaskFinalized):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: repository.ErrTaskFinalized.Error()})
	case errors.Is(err, repository.ErrClaimLost):
		c.JSON(http.StatusPreconditionFailed, dto.ErrorResponse{Error: repository.ErrClaimLost.Error()})
	case errors.Is(err, repository.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}
