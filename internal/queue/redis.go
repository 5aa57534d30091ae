package asynqx

import (
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// NewRedisConnOpt 解析 redis:// 或 rediss:// URI；不带 scheme 的地址视为 db 0
func NewRedisConnOpt(redisURI string) (asynq.RedisConnOpt, error) {
	redisURI = strings.TrimSpace(redisURI)
	if redisURI == "" {
		return nil, fmt.Errorf("empty redis uri")
	}
	if !strings.Contains(redisURI, "://") {
		redisURI = "redis://" + redisURI + "/0"
	}

	opt, err := asynq.ParseRedisURI(redisURI)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	if c, ok := opt.(asynq.RedisClientOpt); ok {
		c.DialTimeout = 5 * time.Second
		return c, nil
	}
	return opt, nil
}
