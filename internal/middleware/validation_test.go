package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestValidateWorkerNameHeader(t *testing.T) {
	tests := []struct {
		name       string
		workerName string
		wantStatus int
	}{
		{"valid simple", "worker1", http.StatusOK},
		{"valid with dash", "my-worker", http.StatusOK},
		{"valid hostname", "host-1.local", http.StatusOK},
		{"absent", "", http.StatusOK},
		{"too short", "ab", http.StatusBadRequest},
		{"invalid chars", "worker@123", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			c.Request.Header.Set("X-Worker-Name", tt.workerName)

			ValidateWorkerNameHeader()(c)

			if tt.wantStatus == http.StatusOK {
				assert.False(t, c.IsAborted())
				assert.Equal(t, tt.workerName, c.GetString("worker_name"))
			} else {
				assert.True(t, c.IsAborted())
				assert.Equal(t, tt.wantStatus, w.Code)
			}
		})
	}
}

func TestValidateTaskIDParam(t *testing.T) {
	tests := []struct {
		name       string
		taskID     string
		wantStatus int
	}{
		{"valid uuid", "550e8400-e29b-41d4-a716-446655440000", http.StatusOK},
		{"not a uuid", "task123", http.StatusNotFound},
		{"too long", strings.Repeat("a", 129), http.StatusNotFound},
		{"empty", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			c.Params = gin.Params{{Key: "id", Value: tt.taskID}}

			ValidateTaskIDParam("id")(c)

			if tt.wantStatus == http.StatusOK {
				assert.False(t, c.IsAborted())
			} else {
				assert.True(t, c.IsAborted())
				assert.Equal(t, tt.wantStatus, w.Code)
			}
		})
	}
}

func TestPayloadSizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("normal size", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, r := gin.CreateTestContext(w)
		r.Use(PayloadSizeLimit(1024))
		r.POST("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		c.Request = httptest.NewRequest("POST", "/test", bytes.NewBufferString("test"))
		r.ServeHTTP(w, c.Request)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("oversized", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, r := gin.CreateTestContext(w)
		r.Use(PayloadSizeLimit(10))
		r.POST("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		c.Request = httptest.NewRequest("POST", "/test", bytes.NewBufferString(strings.Repeat("a", 20)))
		r.ServeHTTP(w, c.Request)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestUploadSizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	r.Use(UploadSizeLimit(10))
	r.POST("/upload", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	c.Request = httptest.NewRequest("POST", "/upload", strings.NewReader("x"))
	c.Request.ContentLength = 600 * 1024 * 1024
	r.ServeHTTP(w, c.Request)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "limit")
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("generate request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, r := gin.CreateTestContext(w)
		r.Use(RequestIDMiddleware())
		r.GET("/test", func(c *gin.Context) {
			assert.NotEmpty(t, GetRequestID(c))
			c.String(http.StatusOK, "ok")
		})

		c.Request = httptest.NewRequest("GET", "/test", nil)
		r.ServeHTTP(w, c.Request)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("use existing request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, r := gin.CreateTestContext(w)
		r.Use(RequestIDMiddleware())
		r.GET("/test", func(c *gin.Context) {
			assert.Equal(t, "test-123", GetRequestID(c))
			c.String(http.StatusOK, "ok")
		})

		c.Request = httptest.NewRequest("GET", "/test", nil)
		c.Request.Header.Set("X-Request-ID", "test-123")
		r.ServeHTTP(w, c.Request)

		assert.Equal(t, "test-123", w.Header().Get("X-Request-ID"))
	})

	t.Run("replace malformed request id", func(t *testing.T) {
		r := gin.New()
		r.Use(RequestIDMiddleware())
		r.GET("/test", func(c *gin.Context) {
			assert.NotNil(t, zerolog.Ctx(c.Request.Context()))
			c.String(http.StatusOK, "ok")
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", "bad id with spaces")
		r.ServeHTTP(w, req)

		got := w.Header().Get("X-Request-ID")
		assert.NotEqual(t, "bad id with spaces", got)
		assert.Len(t, got, 36)
	})
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  a\x00b\x7fc\n "))
}
