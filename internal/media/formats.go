package media

import (
	"path/filepath"
	"strings"
)

// mimeTypes 支持的音频扩展名及其 MIME 类型
var mimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".aac":  "audio/aac",
	".aiff": "audio/aiff",
}

// Supported 判断文件扩展名是否受支持
func Supported(fileName string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(fileName))]
	return ok
}

// MimeType 根据扩展名返回 MIME 类型，未知扩展名返回 application/octet-stream
func MimeType(fileName string) string {
	if m, ok := mimeTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return m
	}
	return "application/octet-stream"
}

// SupportedExtensions 返回支持的扩展名列表（用于错误提示）
func SupportedExtensions() []string {
	return []string{".mp3", ".wav", ".m4a", ".flac", ".ogg", ".webm", ".aac", ".aiff"}
}

// ExtensionFor 根据 MIME 类型反查扩展名，未知返回空串
func ExtensionFor(mimeType string) string {
	for _, ext := range SupportedExtensions() {
		if mimeTypes[ext] == mimeType {
			return ext
		}
	}
	return ""
}
