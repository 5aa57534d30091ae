package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskStatusPending, TaskStatusProcessing, true},
		{TaskStatusPending, TaskStatusUploading, true},
		{TaskStatusPending, TaskStatusCancelled, true},
		{TaskStatusPending, TaskStatusCompleted, false},
		{TaskStatusUploading, TaskStatusProcessing, true},
		{TaskStatusUploading, TaskStatusFailed, true},
		{TaskStatusProcessing, TaskStatusUploading, false},
		{TaskStatusProcessing, TaskStatusCompleted, true},
		{TaskStatusProcessing, TaskStatusPending, true},
		{TaskStatusProcessing, TaskStatusProcessing, true},
		{TaskStatusCompleted, TaskStatusFailed, false},
		{TaskStatusCancelled, TaskStatusPending, false},
		{TaskStatusFailed, TaskStatusFailed, false},
		{TaskStatus("bogus"), TaskStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCheckConsistency(t *testing.T) {
	msg := "boom"
	assert.NoError(t, Task{Status: TaskStatusCompleted, Result: &Result{Text: "x"}}.CheckConsistency())
	assert.Error(t, Task{Status: TaskStatusCompleted}.CheckConsistency())
	assert.Error(t, Task{Status: TaskStatusCompleted, Result: &Result{Text: "x"}, Error: &msg}.CheckConsistency())
	assert.NoError(t, Task{Status: TaskStatusFailed, Error: &msg}.CheckConsistency())
	assert.Error(t, Task{Status: TaskStatusFailed, Result: &Result{Text: "x"}, Error: &msg}.CheckConsistency())
	assert.NoError(t, Task{Status: TaskStatusCancelled}.CheckConsistency())
	assert.Error(t, Task{Status: TaskStatusPending, Error: &msg}.CheckConsistency())
}

func TestRenderText_Structured(t *testing.T) {
	r := &Result{
		Summary: "S",
		Segments: []Segment{
			{Speaker: "A", Timestamp: "00:01", Content: "hi", Language: "en", Emotion: EmotionNeutral},
		},
	}

	text := RenderText(r, "en")

	assert.Contains(t, text, "Summary: S")
	assert.Contains(t, text, "\n[00:01] A: hi")
	assert.NotContains(t, text, "translation:")
}

func TestRenderText_ForeignSegment(t *testing.T) {
	r := &Result{
		Segments: []Segment{
			{Speaker: "A", Timestamp: "00:01", Content: "hi", Language: "en"},
			{Speaker: "B", Timestamp: "00:07", Content: "你好", Language: "zh", Translation: "hello"},
		},
	}

	text := RenderText(r, "")

	assert.Equal(t, "[00:01] A: hi\n[00:07] B [zh]: 你好 (translation: hello)", text)
}

func TestRenderText_Flat(t *testing.T) {
	assert.Equal(t, "[00:01] hello", RenderText(&Result{Text: "[00:01] hello"}, "en"))
	assert.Equal(t, "", RenderText(nil, "en"))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00", FormatTimestamp(0))
	assert.Equal(t, "01:05", FormatTimestamp(65.9))
	assert.Equal(t, "01:00:01", FormatTimestamp(3601))
}

func TestDownloadFileName(t *testing.T) {
	assert.Equal(t, "meeting.txt", DownloadFileName("meeting.mp3"))
	assert.Equal(t, "transcript.txt", DownloadFileName(""))
}

func TestBlobKey(t *testing.T) {
	assert.Equal(t, "abc.mp3", BlobKey("abc", "Song.MP3"))
	assert.Equal(t, "abc", BlobKey("abc", "noext"))
}

func TestResultScan(t *testing.T) {
	in := Result{Summary: "S", Segments: []Segment{{Speaker: "A", Content: "hi", Emotion: EmotionHappy}}}
	v, err := in.Value()
	require.NoError(t, err)

	var out Result
	require.NoError(t, out.Scan([]byte(v.(string))))
	assert.Equal(t, in, out)

	raw, _ := json.Marshal(out)
	assert.Contains(t, string(raw), `"emotion":"happy"`)
}

func TestNormalizeEmotion(t *testing.T) {
	assert.Equal(t, EmotionAngry, NormalizeEmotion(" Angry "))
	assert.Equal(t, EmotionNeutral, NormalizeEmotion("confused"))
}
