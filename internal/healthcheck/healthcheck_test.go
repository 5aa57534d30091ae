package healthcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthChecker_LivenessCheck(t *testing.T) {
	hc := NewHealthChecker("1.0.0")

	result := hc.LivenessCheck()

	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "running", result.Checks["service"])
	assert.Equal(t, "1.0.0", result.Version)
}

func TestHealthChecker_ReadinessCheck(t *testing.T) {
	hc := NewHealthChecker("").
		Register("postgres", PingFunc(func(context.Context) error { return nil })).
		Register("redis", nil)

	result := hc.ReadinessCheck(context.Background())
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, map[string]string{"postgres": "ok"}, result.Checks)

	hc.Register("blob", PingFunc(func(context.Context) error { return errors.New("bucket missing") }))
	result = hc.ReadinessCheck(context.Background())
	assert.Equal(t, "error", result.Status)
	assert.Equal(t, "error: bucket missing", result.Checks["blob"])
	assert.Equal(t, "ok", result.Checks["postgres"])
}
