package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Task 转写任务实体
type Task struct {
	ID        string     `json:"id"`
	FileName  string     `json:"file_name"`
	FileSize  int64      `json:"file_size"`
	MimeType  string     `json:"mime_type,omitempty"`
	Duration  float64    `json:"duration_seconds,omitempty"`
	Status    TaskStatus `json:"status"`
	Progress  int        `json:"progress"`
	Result    *Result    `json:"result,omitempty"`
	Error     *string    `json:"error,omitempty"`
	OwnerID   *string    `json:"owner_id,omitempty"`
	ClaimedBy *string    `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BlobKey 媒体文件在存储中的 key：按 task id 分区，保留原扩展名
func (t Task) BlobKey() string {
	return BlobKey(t.ID, t.FileName)
}

// BlobKey 根据 task id 与文件名生成存储 key
func BlobKey(taskID, fileName string) string {
	return taskID + strings.ToLower(filepath.Ext(fileName))
}

// CheckConsistency 校验终态与 result/error 的对应关系
func (t Task) CheckConsistency() error {
	switch t.Status {
	case TaskStatusCompleted:
		if t.Result == nil || t.Error != nil {
			return errors.New("completed task must have result and no error")
		}
	case TaskStatusFailed:
		if t.Error == nil || t.Result != nil {
			return errors.New("failed task must have error and no result")
		}
	default:
		if t.Result != nil || t.Error != nil {
			return fmt.Errorf("%s task must not carry result or error", t.Status)
		}
	}
	return nil
}

// Emotion 情绪分类（固定集合）
type Emotion string

const (
	EmotionHappy   Emotion = "happy"
	EmotionSad     Emotion = "sad"
	EmotionAngry   Emotion = "angry"
	EmotionNeutral Emotion = "neutral"
)

// NormalizeEmotion 把未知值归为 neutral
func NormalizeEmotion(s string) Emotion {
	switch Emotion(strings.ToLower(strings.TrimSpace(s))) {
	case EmotionHappy:
		return EmotionHappy
	case EmotionSad:
		return EmotionSad
	case EmotionAngry:
		return EmotionAngry
	default:
		return EmotionNeutral
	}
}

// Segment 结构化转写片段
type Segment struct {
	Speaker     string  `json:"speaker"`
	Timestamp   string  `json:"timestamp"`
	Content     string  `json:"content"`
	Language    string  `json:"language"`
	Emotion     Emotion `json:"emotion"`
	Translation string  `json:"translation,omitempty"`
}

// Result 转写结果：要么是纯文本，要么是 summary + segments
type Result struct {
	Text     string    `json:"text,omitempty"`
	Summary  string    `json:"summary,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}

// IsStructured 是否为结构化结果
func (r *Result) IsStructured() bool {
	return r != nil && len(r.Segments) > 0
}

// IsEmpty 文本与片段均为空
func (r *Result) IsEmpty() bool {
	return r == nil || (strings.TrimSpace(r.Text) == "" && len(r.Segments) == 0)
}

// Value 实现 driver.Valuer，以 jsonb 落库
func (r Result) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (r *Result) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = Result{}
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported result column type %T", src)
	}
}
