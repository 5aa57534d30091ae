package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var (
	// L 全局 logger
	L = zerolog.New(io.Discard)
)

// Init 初始化日志器，production 为 true 时输出 JSON
func Init(production bool, level string) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if !production {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			// 常用字段靠前输出
			FieldsOrder: []string{
				"request_id",
				"worker",
				"task_id",
				"status",
				"progress",
				"method",
				"path",
				"duration(ms)",
				"client_ip",
			},
		}
	}

	L = zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger()
	zlog.Logger = L

	SetLevel(level)
}

// SetLevel 设置日志级别
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// WithRequestID 添加 request_id
func WithRequestID(requestID string) zerolog.Logger {
	return L.With().Str("request_id", requestID).Logger()
}

// WithWorkerName 添加 worker
func WithWorkerName(workerName string) zerolog.Logger {
	return L.With().Str("worker", workerName).Logger()
}

// WithTaskID 添加 task_id
func WithTaskID(taskID string) zerolog.Logger {
	return L.With().Str("task_id", taskID).Logger()
}
