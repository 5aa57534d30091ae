package healthcheck

import (
	"context"
	"sort"
	"time"
)

// Pinger 可探活的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc 函数适配器
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthChecker 健康检查器
type HealthChecker struct {
	version string
	timeout time.Duration
	names   []string
	deps    map[string]Pinger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		version: version,
		timeout: 2 * time.Second,
		deps:    map[string]Pinger{},
	}
}

// Register 注册依赖；重名覆盖。nil 依赖被忽略（例如未配置 Redis）
func (h *HealthChecker) Register(name string, p Pinger) *HealthChecker {
	if p == nil {
		return h
	}
	if _, ok := h.deps[name]; !ok {
		h.names = append(h.names, name)
		sort.Strings(h.names)
	}
	h.deps[name] = p
	return h
}

// CheckResult 健康检查结果
type CheckResult struct {
	Status  string            `json:"status"` // "ok" or "error"
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// LivenessCheck 存活检查（快速返回，不检查依赖）
func (h *HealthChecker) LivenessCheck() CheckResult {
	return CheckResult{
		Status:  "ok",
		Checks:  map[string]string{"service": "running"},
		Version: h.version,
	}
}

// ReadinessCheck 就绪检查（检查所有依赖）
func (h *HealthChecker) ReadinessCheck(ctx context.Context) CheckResult {
	if ctx == nil {
		ctx = context.Background()
	}
	result := CheckResult{
		Status:  "ok",
		Checks:  make(map[string]string, len(h.names)),
		Version: h.version,
	}

	for _, name := range h.names {
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := h.deps[name].Ping(cctx)
		cancel()
		if err != nil {
			result.Checks[name] = "error: " + err.Error()
			result.Status = "error"
			continue
		}
		result.Checks[name] = "ok"
	}
	return result
}
