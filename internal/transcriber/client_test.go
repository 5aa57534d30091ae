package transcriber

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/azhengyongqin/transcribe-hub/internal/config"
)

// mockProvider testify mock 实现的 StagedProvider
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) GenerateInline(ctx context.Context, data []byte, mimeType string, p Prompt) (string, error) {
	args := m.Called(mimeType)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Upload(ctx context.Context, r io.Reader, size int64, mimeType, displayName string) (*File, error) {
	_, _ = io.Copy(io.Discard, r)
	args := m.Called(size, mimeType)
	f, _ := args.Get(0).(*File)
	return f, args.Error(1)
}

func (m *mockProvider) GetFile(ctx context.Context, name string) (*File, error) {
	args := m.Called(name)
	f, _ := args.Get(0).(*File)
	return f, args.Error(1)
}

func (m *mockProvider) GenerateFromFile(ctx context.Context, f *File, p Prompt) (string, error) {
	args := m.Called(f.Name)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) DeleteFile(ctx context.Context, name string) error {
	return m.Called(name).Error(0)
}

// inlineOnly 只实现 Provider
type inlineOnly struct {
	calls int
	errs  []error
	out   string
}

func (p *inlineOnly) Name() string { return "inline" }

func (p *inlineOnly) GenerateInline(context.Context, []byte, string, Prompt) (string, error) {
	p.calls++
	if p.calls <= len(p.errs) {
		return "", p.errs[p.calls-1]
	}
	return p.out, nil
}

func testOptions() Options {
	return Options{
		InlineMaxBytes:  15 * 1024 * 1024,
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 5,
		DefaultLanguage: "en",
		Structured:      true,
		Generate:        Policy{Attempts: 3, Delay: time.Millisecond},
		Upload:          Policy{Attempts: 5, Delay: time.Millisecond},
	}
}

func writeMedia(t *testing.T, size int64) Media {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return Media{Path: path, FileName: "audio.mp3", MimeType: "audio/mpeg", Size: size}
}

var connReset = &ProviderError{Op: "generate", Err: syscall.ECONNRESET}

func TestInline_RetryThenSuccess(t *testing.T) {
	p := &inlineOnly{errs: []error{connReset, connReset}, out: "[00:01] hello"}
	c := NewClient(p, testOptions())

	res, err := c.Transcribe(context.Background(), writeMedia(t, 1024), Hooks{})
	require.NoError(t, err)
	assert.Equal(t, "[00:01] hello", res.Text)
	assert.Equal(t, 3, p.calls)
}

func TestInline_RetryExhausted(t *testing.T) {
	p := &inlineOnly{errs: []error{connReset, connReset, connReset, connReset}, out: "never"}
	c := NewClient(p, testOptions())

	res, err := c.Transcribe(context.Background(), writeMedia(t, 1024), Hooks{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, syscall.ECONNRESET))
	assert.Equal(t, 3, p.calls)
}

func TestInline_PermanentErrorNotRetried(t *testing.T) {
	p := &inlineOnly{errs: []error{&ProviderError{Op: "generate", StatusCode: 400, Message: "bad audio"}}}
	c := NewClient(p, testOptions())

	_, err := c.Transcribe(context.Background(), writeMedia(t, 1024), Hooks{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad audio")
	assert.Equal(t, 1, p.calls)
}

func TestInline_EmptyResponseFails(t *testing.T) {
	p := &inlineOnly{out: "   "}
	c := NewClient(p, testOptions())

	_, err := c.Transcribe(context.Background(), writeMedia(t, 10), Hooks{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestPathFor(t *testing.T) {
	staged := NewClient(&mockProvider{}, testOptions())
	assert.Equal(t, PathInline, staged.PathFor(15*1024*1024))
	assert.Equal(t, PathStaged, staged.PathFor(15*1024*1024+1))

	inline := NewClient(&inlineOnly{}, testOptions())
	assert.Equal(t, PathInline, inline.PathFor(100*1024*1024))
}

func TestStaged_SuccessReleasesOnce(t *testing.T) {
	m := &mockProvider{}
	media := writeMedia(t, 20*1000*1000)

	m.On("Upload", media.Size, "audio/mpeg").
		Return(&File{Name: "files/abc", URI: "https://x/files/abc", State: FileStateProcessing}, nil).Once()
	m.On("GetFile", "files/abc").Return(&File{Name: "files/abc", State: FileStateProcessing}, nil).Once()
	m.On("GetFile", "files/abc").Return(&File{Name: "files/abc", State: FileStateActive}, nil).Once()
	m.On("GenerateFromFile", "files/abc").
		Return(`{"summary":"S","segments":[{"speaker":"A","timestamp":"00:01","content":"hi","language":"en","emotion":"neutral"}]}`, nil).Once()
	m.On("DeleteFile", "files/abc").Return(nil).Once()

	ready := 0
	c := NewClient(m, testOptions())
	res, err := c.Transcribe(context.Background(), media, Hooks{OnFileReady: func(context.Context) error {
		ready++
		return nil
	}})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsStructured())
	assert.Equal(t, 1, ready)
	m.AssertExpectations(t)
	m.AssertNumberOfCalls(t, "DeleteFile", 1)
}

func TestStaged_UploadRetry(t *testing.T) {
	m := &mockProvider{}
	media := writeMedia(t, 16*1024*1024)

	m.On("Upload", media.Size, "audio/mpeg").Return(nil, &ProviderError{Op: "upload", StatusCode: 503}).Times(4)
	m.On("Upload", media.Size, "audio/mpeg").Return(&File{Name: "files/u", State: FileStateActive}, nil).Once()
	m.On("GenerateFromFile", "files/u").Return("plain transcript", nil).Once()
	m.On("DeleteFile", "files/u").Return(nil).Once()

	res, err := NewClient(m, testOptions()).Transcribe(context.Background(), media, Hooks{})
	require.NoError(t, err)
	assert.Equal(t, "plain transcript", res.Text)
	m.AssertNumberOfCalls(t, "Upload", 5)
}

func TestStaged_GenerateErrorStillReleasesOnce(t *testing.T) {
	m := &mockProvider{}
	media := writeMedia(t, 20*1024*1024)

	m.On("Upload", media.Size, "audio/mpeg").Return(&File{Name: "files/e", State: FileStateActive}, nil).Once()
	m.On("GenerateFromFile", "files/e").Return("", &ProviderError{Op: "generate", StatusCode: 400}).Once()
	m.On("DeleteFile", "files/e").Return(nil).Once()

	_, err := NewClient(m, testOptions()).Transcribe(context.Background(), media, Hooks{})
	require.Error(t, err)
	m.AssertNumberOfCalls(t, "DeleteFile", 1)
}

func TestStaged_PollTimeout(t *testing.T) {
	m := &mockProvider{}
	media := writeMedia(t, 20*1024*1024)

	m.On("Upload", media.Size, "audio/mpeg").Return(&File{Name: "files/t", State: FileStateProcessing}, nil).Once()
	m.On("GetFile", "files/t").Return(&File{Name: "files/t", State: FileStateProcessing}, nil)
	m.On("DeleteFile", "files/t").Return(nil).Once()

	_, err := NewClient(m, testOptions()).Transcribe(context.Background(), media, Hooks{})
	assert.ErrorIs(t, err, ErrFileProcessingTimeout)
	m.AssertNumberOfCalls(t, "GetFile", 5)
	m.AssertNumberOfCalls(t, "DeleteFile", 1)
}

func TestStaged_FailedStateReleases(t *testing.T) {
	m := &mockProvider{}
	media := writeMedia(t, 20*1024*1024)

	m.On("Upload", media.Size, "audio/mpeg").Return(&File{Name: "files/f", State: FileStateFailed}, nil).Once()
	m.On("DeleteFile", "files/f").Return(nil).Once()

	_, err := NewClient(m, testOptions()).Transcribe(context.Background(), media, Hooks{})
	assert.ErrorIs(t, err, ErrUnsupportedState)
	m.AssertNumberOfCalls(t, "DeleteFile", 1)
}

func TestStaged_CancelledStillReleases(t *testing.T) {
	m := &mockProvider{}
	media := writeMedia(t, 20*1024*1024)
	ctx, cancel := context.WithCancel(context.Background())

	m.On("Upload", media.Size, "audio/mpeg").Return(&File{Name: "files/c", State: FileStateActive}, nil).Once()
	m.On("DeleteFile", "files/c").Return(nil).Once()

	_, err := NewClient(m, testOptions()).Transcribe(ctx, media, Hooks{OnFileReady: func(context.Context) error {
		cancel()
		return context.Canceled
	}})
	assert.ErrorIs(t, err, context.Canceled)
	m.AssertNumberOfCalls(t, "DeleteFile", 1)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&ProviderError{StatusCode: 500}))
	assert.True(t, IsRetryable(&ProviderError{StatusCode: 429}))
	assert.False(t, IsRetryable(&ProviderError{StatusCode: 404}))
	assert.True(t, IsRetryable(&ProviderError{Err: syscall.ECONNREFUSED}))
	assert.True(t, IsRetryable(&ProviderError{Err: io.ErrUnexpectedEOF}))
	assert.True(t, IsRetryable(syscall.EPIPE))
	assert.False(t, IsRetryable(ErrEmptyResponse))
	assert.False(t, IsRetryable(ErrMalformedResponse))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(nil))
}

func TestFromConfig(t *testing.T) {
	c, err := FromConfig(config.ProviderConfig{Kind: "gemini", APIKey: "k", InlineMaxBytes: 100})
	require.NoError(t, err)
	assert.Equal(t, PathStaged, c.PathFor(101))
	assert.Equal(t, PathInline, c.PathFor(100))

	c, err = FromConfig(config.ProviderConfig{Kind: "whisper", BaseURL: "http://whisper"})
	require.NoError(t, err)
	assert.Equal(t, PathInline, c.PathFor(1<<30))
	assert.Equal(t, int64(15*1024*1024), c.InlineMaxBytes())

	_, err = FromConfig(config.ProviderConfig{Kind: "other"})
	assert.Error(t, err)
}
