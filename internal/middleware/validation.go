package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// MaxPayloadSize JSON 请求体上限（2MB）
	MaxPayloadSize = 2 * 1024 * 1024

	// multipartOverhead multipart 边界与表单头的余量
	multipartOverhead = 1024 * 1024
)

var (
	// WorkerNameRegex Worker 名称正则（字母数字下划线连字符点，3-64字符）
	WorkerNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)
)

// PayloadSizeLimit 非上传请求的大小限制
func PayloadSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("request body too large, max %d bytes", maxSize),
			})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// UploadSizeLimit 上传大小限制：声明长度超限直接返回 400，实际读取也不会超过上限
func UploadSizeLimit(maxBytes int64) gin.HandlerFunc {
	limit := maxBytes + multipartOverhead
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("file exceeds the %d MiB limit", maxBytes/(1024*1024)),
			})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// ValidateWorkerName 验证 Worker 名称
func ValidateWorkerName(workerName string) bool {
	return WorkerNameRegex.MatchString(workerName)
}

// ValidateTaskID 验证 Task ID（uuid）
func ValidateTaskID(taskID string) bool {
	_, err := uuid.Parse(taskID)
	return err == nil
}

// SanitizeString 去除前后空格与控制字符
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)

	var builder strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateWorkerNameHeader 校验 X-Worker-Name（可选）
func ValidateWorkerNameHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := SanitizeString(c.GetHeader("X-Worker-Name"))
		if name != "" && !ValidateWorkerName(name) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "X-Worker-Name 格式无效，必须是3-64个字母、数字、点、下划线或连字符",
			})
			c.Abort()
			return
		}
		c.Set("worker_name", name)
		c.Next()
	}
}

// ValidateTaskIDParam 验证路径参数中的 task id；不是 uuid 时返回 404
func ValidateTaskIDParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param(name)
		if taskID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": name + " 参数缺失",
			})
			c.Abort()
			return
		}

		if !ValidateTaskID(taskID) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "task not found",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CORSMiddleware CORS 中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
