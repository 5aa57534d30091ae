package transcriber

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/azhengyongqin/transcribe-hub/internal/model"
)

// BuildPrompt 生成转写指令
func BuildPrompt(p Prompt) string {
	lang := p.DefaultLanguage
	if lang == "" {
		lang = model.DefaultLanguage
	}
	if !p.Structured {
		return "Transcribe this audio verbatim. Prefix every utterance with its start time as [mm:ss] " +
			"(or [hh:mm:ss] past one hour). Return plain text only."
	}
	return fmt.Sprintf(`Transcribe this audio and return JSON only, with this shape:
{"summary": string, "segments": [{"speaker": string, "timestamp": "mm:ss", "content": string,
"language": ISO 639-1 code, "emotion": one of "happy","sad","angry","neutral", "translation": string}]}
Identify speakers as "Speaker 1", "Speaker 2" and so on unless names are spoken.
Include "translation" (into %[1]s) only for segments whose language is not %[1]s.`, lang)
}

type rawSegment struct {
	Speaker     string `json:"speaker"`
	Timestamp   string `json:"timestamp"`
	Content     string `json:"content"`
	Text        string `json:"text"`
	Language    string `json:"language"`
	Emotion     string `json:"emotion"`
	Translation string `json:"translation"`
}

type rawResult struct {
	Summary  string       `json:"summary"`
	Text     string       `json:"text"`
	Segments []rawSegment `json:"segments"`
}

// ParseResult 把转写服务的原始输出解析为 Result。
// JSON（可带 ``` 包裹）解析为结构化结果，否则按纯文本处理；空内容返回 ErrEmptyResponse。
func ParseResult(raw, defaultLanguage string) (*model.Result, error) {
	if defaultLanguage == "" {
		defaultLanguage = model.DefaultLanguage
	}
	body := stripFences(strings.TrimSpace(raw))
	if body == "" {
		return nil, ErrEmptyResponse
	}

	var rr rawResult
	switch {
	case strings.HasPrefix(body, "{"):
		if err := json.Unmarshal([]byte(body), &rr); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	case isSegmentArray(body):
		// "[{...}]" 以外的 "[" 开头内容是 "[00:05] ..." 形式的纯文本
		if err := json.Unmarshal([]byte(body), &rr.Segments); err != nil {
			return &model.Result{Text: body}, nil
		}
	default:
		return &model.Result{Text: body}, nil
	}

	res := &model.Result{Summary: strings.TrimSpace(rr.Summary)}
	for _, s := range rr.Segments {
		content := strings.TrimSpace(s.Content)
		if content == "" {
			content = strings.TrimSpace(s.Text)
		}
		if content == "" {
			continue
		}
		lang := strings.ToLower(strings.TrimSpace(s.Language))
		if lang == "" {
			lang = defaultLanguage
		}
		seg := model.Segment{
			Speaker:   strings.TrimSpace(s.Speaker),
			Timestamp: normalizeTimestamp(s.Timestamp),
			Content:   content,
			Language:  lang,
			Emotion:   model.NormalizeEmotion(s.Emotion),
		}
		if !strings.EqualFold(lang, defaultLanguage) {
			seg.Translation = strings.TrimSpace(s.Translation)
		}
		res.Segments = append(res.Segments, seg)
	}

	if len(res.Segments) == 0 {
		res.Text = strings.TrimSpace(rr.Text)
		res.Summary = ""
	}
	if res.IsEmpty() {
		return nil, ErrEmptyResponse
	}
	return res, nil
}

// isSegmentArray 判断内容是否为 JSON 片段数组
func isSegmentArray(s string) bool {
	if !strings.HasPrefix(s, "[") {
		return false
	}
	rest := strings.TrimSpace(s[1:])
	return strings.HasPrefix(rest, "{") || rest == "]"
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func normalizeTimestamp(ts string) string {
	ts = strings.TrimSpace(ts)
	ts = strings.TrimPrefix(ts, "[")
	ts = strings.TrimSuffix(ts, "]")
	if ts == "" {
		return "00:00"
	}
	return ts
}
