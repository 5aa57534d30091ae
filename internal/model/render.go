package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultLanguage 默认语言；非默认语言的片段才会输出语言标签与翻译
const DefaultLanguage = "en"

// RenderText 把转写结果渲染为可下载的纯文本。
// 纯文本结果原样返回；结构化结果每个片段一行：[时间戳] 说话人: 内容
func RenderText(r *Result, defaultLanguage string) string {
	if r == nil {
		return ""
	}
	if !r.IsStructured() {
		return r.Text
	}
	if defaultLanguage == "" {
		defaultLanguage = DefaultLanguage
	}

	var b strings.Builder
	if s := strings.TrimSpace(r.Summary); s != "" {
		b.WriteString("Summary: ")
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	for i, seg := range r.Segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(renderSegment(seg, defaultLanguage))
	}
	return b.String()
}

func renderSegment(seg Segment, defaultLanguage string) string {
	speaker := strings.TrimSpace(seg.Speaker)
	if speaker == "" {
		speaker = "Speaker"
	}
	foreign := seg.Language != "" && !strings.EqualFold(seg.Language, defaultLanguage)
	if foreign {
		speaker = fmt.Sprintf("%s [%s]", speaker, seg.Language)
	}

	line := fmt.Sprintf("[%s] %s: %s", seg.Timestamp, speaker, strings.TrimSpace(seg.Content))
	if foreign && strings.TrimSpace(seg.Translation) != "" {
		line += fmt.Sprintf(" (translation: %s)", strings.TrimSpace(seg.Translation))
	}
	return line
}

// FormatTimestamp 秒数格式化为 mm:ss，超过一小时为 hh:mm:ss
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// DownloadFileName 下载文件名：原文件名去扩展名 + .txt
func DownloadFileName(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if base == "" || base == "." {
		base = "transcript"
	}
	return base + ".txt"
}
