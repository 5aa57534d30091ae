package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/azhengyongqin/transcribe-hub/internal/healthcheck"
	"github.com/azhengyongqin/transcribe-hub/internal/middleware"
	"github.com/azhengyongqin/transcribe-hub/internal/server/handler"
	"github.com/azhengyongqin/transcribe-hub/internal/service"
)

type Deps struct {
	Tasks    *service.TaskService
	Workers  *service.WorkerService
	Internal *service.InternalService

	// HealthChecker 健康检查器
	HealthChecker *healthcheck.HealthChecker

	// WorkerAPIKey worker API 共享密钥，为空时不校验
	WorkerAPIKey string

	// InternalAPIToken 内部接口 token，为空时内部接口全部拒绝
	InternalAPIToken string
}

// NewRouter 提供 Gin HTTP API
// @title Transcribe-Hub API
// @version 1.0.0
// @description 音频转写任务平台 API
// @BasePath /api/v1
// @schemes http https
func NewRouter(deps Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	// 全局中间件
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.PrometheusMiddleware())
	r.Use(middleware.CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps.HealthChecker)
	taskHandler := handler.NewTaskHandler(deps.Tasks)
	workerHandler := handler.NewWorkerHandler(deps.Workers)
	internalHandler := handler.NewInternalHandler(deps.Internal)

	// 健康检查路由
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// Prometheus metrics 端点
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger API 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")

	// 上传走单独的大小限制，其余请求体限制为 MaxPayloadSize
	small := middleware.PayloadSizeLimit(middleware.MaxPayloadSize)
	taskID := middleware.ValidateTaskIDParam("id")

	tasks := api.Group("/tasks")
	{
		tasks.POST("", middleware.UploadSizeLimit(deps.Tasks.MaxUploadBytes()), taskHandler.CreateTask)
		tasks.GET("", small, taskHandler.ListTasks)
		tasks.DELETE("", small, taskHandler.DeleteTask)
		tasks.GET("/:id", small, taskID, taskHandler.GetTask)
		tasks.DELETE("/:id", small, taskID, taskHandler.DeleteTask)
		tasks.GET("/:id/download", small, taskID, taskHandler.DownloadTask)
	}

	worker := api.Group("/worker", small,
		middleware.BearerAuth(deps.WorkerAPIKey),
		middleware.ValidateWorkerNameHeader(),
	)
	{
		worker.GET("/tasks", workerHandler.ClaimTask)
		worker.PATCH("/tasks", workerHandler.PatchTask)
		worker.GET("/tasks/:id", taskID, workerHandler.GetTaskStatus)
		worker.GET("/tasks/:id/file", taskID, workerHandler.DownloadFile)
		worker.DELETE("/tasks/:id/file", taskID, workerHandler.DeleteFile)
	}

	internal := api.Group("/internal", small, middleware.InternalToken(deps.InternalAPIToken))
	{
		internal.GET("/users/tasks", internalHandler.UserTasks)
	}

	return r
}
