package transcriber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azhengyongqin/transcribe-hub/internal/model"
)

func TestParseResult_Structured(t *testing.T) {
	raw := "```json\n" + `{"summary":"S","segments":[
{"speaker":"A","timestamp":"[00:01]","content":"hi","language":"en","emotion":"Happy","translation":"ignored"},
{"speaker":"B","timestamp":"00:07","content":"你好","language":"zh","emotion":"excited","translation":"hello"}]}` + "\n```"

	res, err := ParseResult(raw, "en")
	require.NoError(t, err)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, "S", res.Summary)
	assert.Equal(t, "00:01", res.Segments[0].Timestamp)
	assert.Equal(t, model.EmotionHappy, res.Segments[0].Emotion)
	assert.Empty(t, res.Segments[0].Translation)
	assert.Equal(t, model.EmotionNeutral, res.Segments[1].Emotion)
	assert.Equal(t, "hello", res.Segments[1].Translation)
}

func TestParseResult_SegmentArray(t *testing.T) {
	res, err := ParseResult(`[{"speaker":"A","timestamp":"00:02","text":"yo"}]`, "")
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, "yo", res.Segments[0].Content)
	assert.Equal(t, "en", res.Segments[0].Language)
}

func TestParseResult_Flat(t *testing.T) {
	res, err := ParseResult("  [00:01] hello there \n", "en")
	require.NoError(t, err)
	assert.False(t, res.IsStructured())
	assert.Equal(t, "[00:01] hello there", res.Text)
}

func TestParseResult_TimestampedText(t *testing.T) {
	for _, raw := range []string{
		"[00:01] hello there",
		"[00:00:05] First sentence here.\n[00:00:12] Second.",
		"[ 00:03 ] spaced",
		"[{broken] not json",
	} {
		res, err := ParseResult(raw, "en")
		require.NoError(t, err, raw)
		assert.False(t, res.IsStructured(), raw)
		assert.Equal(t, raw, res.Text)
	}
}

func TestParseResult_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "```\n```", `{"segments":[]}`, `{"segments":[{"content":"  "}]}`} {
		_, err := ParseResult(raw, "en")
		assert.ErrorIs(t, err, ErrEmptyResponse, raw)
	}
}

func TestParseResult_Malformed(t *testing.T) {
	_, err := ParseResult(`{"segments": [`, "en")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBuildPrompt(t *testing.T) {
	assert.Contains(t, BuildPrompt(Prompt{Structured: true, DefaultLanguage: "de"}), "not de")
	assert.Contains(t, BuildPrompt(Prompt{}), "[mm:ss]")
}
