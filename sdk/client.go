package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound 任务或文件不存在
	ErrNotFound = errors.New("sdk: not found")
	// ErrTaskFinalized 任务已处于终态（例如已被取消）
	ErrTaskFinalized = errors.New("sdk: task already finalized")
	// ErrClaimLost 任务已不再由本 worker 持有
	ErrClaimLost = errors.New("sdk: task claimed by another worker")
)

// APIError 非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// Client 访问 worker API 的 HTTP 客户端
type Client struct {
	BaseURL    string
	APIKey     string
	WorkerName string
	HTTPClient *http.Client

	// FileHTTPClient 下载媒体文件用，超时更长
	FileHTTPClient *http.Client
}

// NewClient 创建客户端；apiKey 为空时不带 Authorization 头
func NewClient(baseURL, apiKey, workerName string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		WorkerName: workerName,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		FileHTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// ClaimTask 认领一个 pending 任务；没有任务时返回 (nil, nil)
func (c *Client) ClaimTask(ctx context.Context) (*Task, error) {
	var result struct {
		Task *Task `json:"task"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/worker/tasks", nil, &result); err != nil {
		return nil, err
	}
	return result.Task, nil
}

// UpdateTask 上报进度或终态
func (c *Client) UpdateTask(ctx context.Context, req UpdateTaskRequest) (*Task, error) {
	var result struct {
		Task *Task `json:"task"`
	}
	if err := c.doJSON(ctx, http.MethodPatch, "/api/v1/worker/tasks", req, &result); err != nil {
		return nil, err
	}
	return result.Task, nil
}

// GetTaskStatus 查询任务状态（用于取消检查）
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	var result struct {
		Status TaskStatus `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/worker/tasks/"+url.PathEscape(taskID), nil, &result); err != nil {
		return "", err
	}
	return result.Status, nil
}

// DownloadFile 下载任务媒体文件写入 w，返回服务端给出的文件名
func (c *Client) DownloadFile(ctx context.Context, taskID string, w io.Writer) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/worker/tasks/"+url.PathEscape(taskID)+"/file", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.fileClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	name := taskID + ".audio"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, nil
}

// DeleteFile 处理结束后删除服务端媒体文件
func (c *Client) DeleteFile(ctx context.Context, taskID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/worker/tasks/"+url.PathEscape(taskID)+"/file", nil, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.WorkerName != "" {
		req.Header.Set("X-Worker-Name", c.WorkerName)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) fileClient() *http.Client {
	if c.FileHTTPClient != nil {
		return c.FileHTTPClient
	}
	return c.client()
}

// checkStatus 把 404/409/412 映射为哨兵错误，其余非 2xx 为 APIError
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	case http.StatusConflict:
		return fmt.Errorf("%w: %w", ErrTaskFinalized, apiErr)
	case http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %w", ErrClaimLost, apiErr)
	}
	return apiErr
}
