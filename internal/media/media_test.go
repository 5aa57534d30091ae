package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	res  commandResult
	err  error
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (commandResult, error) {
	f.args = append([]string{name}, args...)
	return f.res, f.err
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.mp3", "B.WAV", "c.m4a", "d.flac", "e.ogg", "f.webm", "g.aac", "h.aiff"} {
		assert.True(t, Supported(name), name)
	}
	assert.False(t, Supported("notes.txt"))
	assert.False(t, Supported("noext"))
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", MimeType("x.MP3"))
	assert.Equal(t, "application/octet-stream", MimeType("x.bin"))
}

func TestFFProbe_Duration(t *testing.T) {
	r := &fakeRunner{res: commandResult{Stdout: "125.500000\n"}}
	p := &FFProbe{bin: "ffprobe", runner: r}

	d, err := p.Duration(context.Background(), "/tmp/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, 125*time.Second+500*time.Millisecond, d)
	assert.Equal(t, "/tmp/a.mp3", r.args[len(r.args)-1])
}

func TestFFProbe_Failure(t *testing.T) {
	r := &fakeRunner{res: commandResult{Stderr: "Invalid data", ExitCode: 1}, err: errors.New("exit status 1")}
	p := &FFProbe{bin: "ffprobe", runner: r}

	_, err := p.Duration(context.Background(), "/tmp/a.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data")
}

func TestFFProbe_Unavailable(t *testing.T) {
	p := NewFFProbe("definitely-not-a-real-ffprobe-binary")

	_, err := p.Duration(context.Background(), "/tmp/a.mp3")
	assert.ErrorIs(t, err, ErrProbeUnavailable)
}

func TestParseDuration(t *testing.T) {
	_, err := parseDuration("N/A")
	assert.Error(t, err)
	d, err := parseDuration("3600")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".m4a", ExtensionFor("audio/mp4"))
	assert.Equal(t, "", ExtensionFor("video/mp4"))
}
