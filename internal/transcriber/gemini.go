package transcriber

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// GeminiOptions Gemini 兼容接口配置
type GeminiOptions struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini 基于 resty 的 Gemini generateContent / Files API 适配器
type Gemini struct {
	client *resty.Client
	model  string
}

var _ StagedProvider = (*Gemini)(nil)

// NewGemini 创建适配器
func NewGemini(opts GeminiOptions) *Gemini {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("x-goog-api-key", opts.APIKey).
		SetHeader("Accept", "application/json")
	return &Gemini{client: c, model: opts.Model}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
	FileData   *geminiFileData   `json:"file_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiFileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type geminiFileEnvelope struct {
	File File `json:"file"`
}

func (g *Gemini) GenerateInline(ctx context.Context, data []byte, mimeType string, p Prompt) (string, error) {
	media := geminiPart{InlineData: &geminiInlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}}
	return g.generate(ctx, "generate_inline", media, p)
}

func (g *Gemini) GenerateFromFile(ctx context.Context, f *File, p Prompt) (string, error) {
	media := geminiPart{FileData: &geminiFileData{MimeType: f.MimeType, FileURI: f.URI}}
	return g.generate(ctx, "generate_file", media, p)
}

func (g *Gemini) generate(ctx context.Context, op string, media geminiPart, p Prompt) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{media, {Text: BuildPrompt(p)}}}},
	}
	if p.Structured {
		body.GenerationConfig = map[string]interface{}{"responseMimeType": "application/json"}
	}

	var out geminiResponse
	var apiErr geminiError
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1beta/models/" + g.model + ":generateContent")
	if err := checkResponse(op, resp, err, &apiErr); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, c := range out.Candidates {
		for _, part := range c.Content.Parts {
			b.WriteString(part.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *Gemini) Upload(ctx context.Context, r io.Reader, size int64, mimeType, displayName string) (*File, error) {
	var out geminiFileEnvelope
	var apiErr geminiError
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("X-Goog-Upload-Protocol", "raw").
		SetHeader("X-Goog-Upload-File-Name", displayName).
		SetHeader("Content-Type", mimeType).
		SetHeader("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(size, 10)).
		SetBody(r).
		SetResult(&out).
		SetError(&apiErr).
		Post("/upload/v1beta/files")
	if err := checkResponse("upload", resp, err, &apiErr); err != nil {
		return nil, err
	}
	if out.File.Name == "" {
		return nil, fmt.Errorf("%w: upload returned no file name", ErrMalformedResponse)
	}
	if out.File.MimeType == "" {
		out.File.MimeType = mimeType
	}
	return &out.File, nil
}

func (g *Gemini) GetFile(ctx context.Context, name string) (*File, error) {
	var out File
	var apiErr geminiError
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/v1beta/" + name)
	if err := checkResponse("get_file", resp, err, &apiErr); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *Gemini) DeleteFile(ctx context.Context, name string) error {
	var apiErr geminiError
	resp, err := g.client.R().
		SetContext(ctx).
		SetError(&apiErr).
		Delete("/v1beta/" + name)
	return checkResponse("delete_file", resp, err, &apiErr)
}

func checkResponse(op string, resp *resty.Response, err error, apiErr *geminiError) error {
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(resp.Body()))
		}
		return &ProviderError{Op: op, StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}
