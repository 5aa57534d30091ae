package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	HTTP     HTTPConfig
	Postgres PostgresConfig
	DBPool   DBPoolConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Provider ProviderConfig
	Limits   LimitsConfig
	Worker   WorkerConfig
	Auth     AuthConfig
	Log      LogConfig
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr string
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	DSN string
}

// DBPoolConfig 数据库连接池配置
type DBPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// RedisConfig Redis 配置（可选：用于唤醒/取消通知与维护任务）
type RedisConfig struct {
	Addr string
}

// Enabled 是否配置了 Redis
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// URI 返回 redis:// 形式的地址
func (c RedisConfig) URI() string {
	if c.Addr == "" {
		return ""
	}
	if strings.HasPrefix(c.Addr, "redis://") || strings.HasPrefix(c.Addr, "rediss://") {
		return c.Addr
	}
	return "redis://" + c.Addr + "/0"
}

// StorageConfig 媒体文件存储配置
type StorageConfig struct {
	Backend        string // local | minio
	UploadDir      string
	MinioEndpoint  string
	MinioBucket    string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
}

// ProviderConfig 转写服务配置
type ProviderConfig struct {
	Kind             string // gemini | whisper
	BaseURL          string
	APIKey           string
	Model            string
	Timeout          time.Duration
	InlineMaxBytes   int64
	PollInterval     time.Duration
	MaxPollAttempts  int
	DefaultLanguage  string
	GenerateAttempts uint
	GenerateDelay    time.Duration
	UploadAttempts   uint
	UploadDelay      time.Duration
}

// LimitsConfig 上传校验配置
type LimitsConfig struct {
	MaxUploadBytes   int64
	MaxAudioDuration time.Duration
	FFProbePath      string
}

// WorkerConfig worker 配置
type WorkerConfig struct {
	Name         string
	Concurrency  int
	PollInterval time.Duration
	StaleTimeout time.Duration
	Mode         string // db | api
	APIBaseURL   string
	TempDir      string
	Embedded     bool
}

// AuthConfig 共享密钥
type AuthConfig struct {
	WorkerAPIKey     string
	InternalAPIToken string
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string
	Production bool
}

// Load 加载配置
func Load() (*Config, error) {
	v := viper.New()

	// 设置配置文件名和路径
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")

	// 允许从环境变量读取（优先级最高）
	v.AutomaticEnv()

	// 读取配置文件（如果存在）
	_ = v.ReadInConfig() // 忽略错误，因为可能只使用环境变量

	setDefaults(v)

	cfg := &Config{}

	cfg.HTTP.Addr = v.GetString("HTTP_ADDR")

	// PostgreSQL 配置
	cfg.Postgres.DSN = v.GetString("POSTGRES_DSN")

	// 数据库连接池配置
	cfg.DBPool.MaxConns = v.GetInt32("DB_MAX_CONNS")
	cfg.DBPool.MinConns = v.GetInt32("DB_MIN_CONNS")
	cfg.DBPool.MaxConnLifetime = v.GetDuration("DB_MAX_CONN_LIFETIME")
	cfg.DBPool.MaxConnIdleTime = v.GetDuration("DB_MAX_CONN_IDLE_TIME")
	cfg.DBPool.HealthCheckPeriod = v.GetDuration("DB_HEALTH_CHECK_PERIOD")

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")

	// 存储配置
	cfg.Storage.Backend = strings.ToLower(v.GetString("STORAGE_BACKEND"))
	cfg.Storage.UploadDir = v.GetString("UPLOAD_DIR")
	cfg.Storage.MinioEndpoint = v.GetString("MINIO_ENDPOINT")
	cfg.Storage.MinioBucket = v.GetString("MINIO_BUCKET")
	cfg.Storage.MinioAccessKey = v.GetString("MINIO_ACCESS_KEY")
	cfg.Storage.MinioSecretKey = v.GetString("MINIO_SECRET_KEY")
	cfg.Storage.MinioUseSSL = v.GetBool("MINIO_USE_SSL")

	// 转写服务配置
	cfg.Provider.Kind = strings.ToLower(v.GetString("PROVIDER_KIND"))
	cfg.Provider.BaseURL = v.GetString("PROVIDER_BASE_URL")
	cfg.Provider.APIKey = v.GetString("PROVIDER_API_KEY")
	cfg.Provider.Model = v.GetString("PROVIDER_MODEL")
	cfg.Provider.Timeout = v.GetDuration("PROVIDER_TIMEOUT")
	cfg.Provider.InlineMaxBytes = v.GetInt64("INLINE_MAX_BYTES")
	cfg.Provider.PollInterval = v.GetDuration("FILE_POLL_INTERVAL")
	cfg.Provider.MaxPollAttempts = v.GetInt("FILE_POLL_MAX_ATTEMPTS")
	cfg.Provider.DefaultLanguage = v.GetString("DEFAULT_LANGUAGE")
	cfg.Provider.GenerateAttempts = v.GetUint("GENERATE_MAX_ATTEMPTS")
	cfg.Provider.GenerateDelay = v.GetDuration("GENERATE_RETRY_DELAY")
	cfg.Provider.UploadAttempts = v.GetUint("UPLOAD_MAX_ATTEMPTS")
	cfg.Provider.UploadDelay = v.GetDuration("UPLOAD_RETRY_DELAY")

	// 上传限制
	cfg.Limits.MaxUploadBytes = v.GetInt64("MAX_UPLOAD_BYTES")
	cfg.Limits.MaxAudioDuration = v.GetDuration("MAX_AUDIO_DURATION")
	cfg.Limits.FFProbePath = v.GetString("FFPROBE_PATH")

	// Worker 配置
	cfg.Worker.Name = v.GetString("WORKER_NAME")
	cfg.Worker.Concurrency = v.GetInt("WORKER_CONCURRENCY")
	cfg.Worker.PollInterval = v.GetDuration("WORKER_POLL_INTERVAL")
	cfg.Worker.StaleTimeout = v.GetDuration("WORKER_STALE_TIMEOUT")
	cfg.Worker.Mode = strings.ToLower(v.GetString("WORKER_MODE"))
	cfg.Worker.APIBaseURL = v.GetString("API_BASE_URL")
	cfg.Worker.TempDir = v.GetString("TEMP_DIR")
	cfg.Worker.Embedded = v.GetBool("EMBEDDED_WORKER")

	cfg.Auth.WorkerAPIKey = v.GetString("WORKER_API_KEY")
	cfg.Auth.InternalAPIToken = v.GetString("INTERNAL_API_TOKEN")

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Production = strings.EqualFold(v.GetString("LOG_FORMAT"), "json")

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":28080")

	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", 5*time.Minute)
	v.SetDefault("DB_HEALTH_CHECK_PERIOD", time.Minute)

	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("UPLOAD_DIR", "/tmp/uploads")

	v.SetDefault("PROVIDER_KIND", "gemini")
	v.SetDefault("PROVIDER_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("PROVIDER_MODEL", "gemini-2.5-flash")
	v.SetDefault("PROVIDER_TIMEOUT", 10*time.Minute)
	v.SetDefault("INLINE_MAX_BYTES", 15*1024*1024)
	v.SetDefault("FILE_POLL_INTERVAL", 5*time.Second)
	v.SetDefault("FILE_POLL_MAX_ATTEMPTS", 360)
	v.SetDefault("DEFAULT_LANGUAGE", "en")
	v.SetDefault("GENERATE_MAX_ATTEMPTS", 3)
	v.SetDefault("GENERATE_RETRY_DELAY", time.Second)
	v.SetDefault("UPLOAD_MAX_ATTEMPTS", 5)
	v.SetDefault("UPLOAD_RETRY_DELAY", 2*time.Second)

	v.SetDefault("MAX_UPLOAD_BYTES", 500*1024*1024)
	v.SetDefault("MAX_AUDIO_DURATION", 5*time.Hour)
	v.SetDefault("FFPROBE_PATH", "ffprobe")

	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("WORKER_POLL_INTERVAL", 2*time.Second)
	v.SetDefault("WORKER_STALE_TIMEOUT", 45*time.Minute)
	v.SetDefault("WORKER_MODE", "db")
	v.SetDefault("API_BASE_URL", "http://localhost:28080")
	v.SetDefault("TEMP_DIR", "/tmp/worker")

	v.SetDefault("LOG_LEVEL", "info")
}

// Validate 验证 API 服务所需配置
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for local storage")
		}
	case "minio":
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioBucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required for minio storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Provider.InlineMaxBytes <= 0 {
		return fmt.Errorf("INLINE_MAX_BYTES must be positive")
	}
	if c.Limits.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// ValidateWorker 验证 worker 所需配置；api 模式不需要数据库与存储
func (c *Config) ValidateWorker() error {
	switch c.Provider.Kind {
	case "gemini":
		if c.Provider.APIKey == "" {
			return fmt.Errorf("PROVIDER_API_KEY is required")
		}
	case "whisper":
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("PROVIDER_BASE_URL is required for whisper")
		}
	default:
		return fmt.Errorf("unsupported PROVIDER_KIND %q", c.Provider.Kind)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	switch c.Worker.Mode {
	case "db":
		return c.Validate()
	case "api":
		if c.Worker.APIBaseURL == "" {
			return fmt.Errorf("API_BASE_URL is required in api mode")
		}
		if c.Provider.InlineMaxBytes <= 0 {
			return fmt.Errorf("INLINE_MAX_BYTES must be positive")
		}
		return nil
	default:
		return fmt.Errorf("unsupported WORKER_MODE %q", c.Worker.Mode)
	}
}
