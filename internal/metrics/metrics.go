package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcribehub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transcribehub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务指标
	TasksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcribehub_tasks_created_total",
			Help: "Total number of transcription tasks created",
		},
	)

	TasksFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcribehub_tasks_finished_total",
			Help: "Total number of tasks reaching a terminal status",
		},
		[]string{"status"},
	)

	TaskExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transcribehub_task_execution_duration_seconds",
			Help:    "Time from claim to terminal status",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
		[]string{"path"},
	)

	TasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcribehub_tasks_in_flight",
			Help: "Number of tasks currently processed by this process",
		},
	)

	// 调度指标
	ClaimAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcribehub_claim_attempts_total",
			Help: "Claim attempts by outcome (hit, empty, error)",
		},
		[]string{"outcome"},
	)

	StaleRequeuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcribehub_stale_requeued_total",
			Help: "Tasks reset to pending by the stale reconciler",
		},
	)

	// 转写服务调用指标
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcribehub_provider_calls_total",
			Help: "Provider calls by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	ProviderRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcribehub_provider_retries_total",
			Help: "Provider call retries by operation",
		},
		[]string{"op"},
	)

	// 数据库连接池指标
	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcribehub_db_connections_in_use",
			Help: "Number of database connections in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcribehub_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	DBConnectionsMax = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcribehub_db_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 错误指标
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcribehub_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "type"},
	)
)

// RecordHTTPRequest 记录 HTTP 请求
func RecordHTTPRequest(method, path string, status int, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTaskCreated 记录任务创建
func RecordTaskCreated() {
	TasksCreatedTotal.Inc()
}

// RecordTaskFinished 记录任务进入终态
func RecordTaskFinished(status, path string, duration float64) {
	TasksFinishedTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		TaskExecutionDuration.WithLabelValues(path).Observe(duration)
	}
}

// RecordClaim 记录一次认领尝试
func RecordClaim(outcome string) {
	ClaimAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordStaleRequeued 记录被重置的任务数
func RecordStaleRequeued(n int) {
	StaleRequeuedTotal.Add(float64(n))
}

// RecordProviderCall 记录转写服务调用
func RecordProviderCall(op, outcome string) {
	ProviderCallsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordProviderRetry 记录转写服务重试
func RecordProviderRetry(op string) {
	ProviderRetriesTotal.WithLabelValues(op).Inc()
}

// UpdateDBPoolStats 更新数据库连接池统计
func UpdateDBPoolStats(inUse, idle, max int32) {
	DBConnectionsInUse.Set(float64(inUse))
	DBConnectionsIdle.Set(float64(idle))
	DBConnectionsMax.Set(float64(max))
}

// RecordError 记录错误
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// statusClass 将 HTTP 状态码转为类别
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
