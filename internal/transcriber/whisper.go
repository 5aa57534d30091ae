package transcriber

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/azhengyongqin/transcribe-hub/internal/media"
	"github.com/azhengyongqin/transcribe-hub/internal/model"
)

// Whisper 本地 faster-whisper 转写服务适配器（只有单次请求路径）
type Whisper struct {
	client *resty.Client
}

var _ Provider = (*Whisper)(nil)

// NewWhisper 创建适配器；baseURL 形如 http://transcriber:8000
func NewWhisper(baseURL string, timeout time.Duration) *Whisper {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout)
	return &Whisper{client: c}
}

func (w *Whisper) Name() string { return "whisper" }

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperResponse struct {
	Text          string           `json:"text"`
	FormattedText string           `json:"formatted_text"`
	Segments      []whisperSegment `json:"segments"`
	Language      string           `json:"language"`
	Duration      float64          `json:"duration"`
}

type whisperError struct {
	Detail string `json:"detail"`
}

// GenerateInline 以 multipart 上传音频，返回带时间戳的纯文本
func (w *Whisper) GenerateInline(ctx context.Context, data []byte, mimeType string, _ Prompt) (string, error) {
	var out whisperResponse
	var apiErr whisperError
	resp, err := w.client.R().
		SetContext(ctx).
		SetMultipartField("audio", "audio"+media.ExtensionFor(mimeType), mimeType, bytes.NewReader(data)).
		SetResult(&out).
		SetError(&apiErr).
		Post("/transcribe-with-timestamps")
	if err != nil {
		return "", &ProviderError{Op: "generate_inline", Err: err}
	}
	if resp.IsError() {
		msg := apiErr.Detail
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return "", &ProviderError{Op: "generate_inline", StatusCode: resp.StatusCode(), Message: msg}
	}

	text := strings.TrimSpace(out.FormattedText)
	if text == "" && len(out.Segments) > 0 {
		text = formatWhisperSegments(out.Segments)
	}
	if text == "" {
		text = strings.TrimSpace(out.Text)
	}
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func formatWhisperSegments(segs []whisperSegment) string {
	lines := make([]string, 0, len(segs))
	for _, s := range segs {
		t := strings.TrimSpace(s.Text)
		if t == "" {
			continue
		}
		lines = append(lines, "["+model.FormatTimestamp(s.Start)+"] "+t)
	}
	return strings.Join(lines, "\n")
}
