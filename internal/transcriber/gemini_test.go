package transcriber

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGemini_GenerateInline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var body geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		require.Len(t, body.Contents[0].Parts, 2)
		assert.Equal(t, "audio/mpeg", body.Contents[0].Parts[0].InlineData.MimeType)
		assert.Equal(t, "YWJj", body.Contents[0].Parts[0].InlineData.Data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"world"}]}}]}`)
	}))
	defer srv.Close()

	g := NewGemini(GeminiOptions{BaseURL: srv.URL, APIKey: "secret", Model: "test-model"})
	out, err := g.GenerateInline(context.Background(), []byte("abc"), "audio/mpeg", Prompt{Structured: true})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestGemini_ErrorClassification(t *testing.T) {
	status := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":{"code":1,"message":"overloaded","status":"UNAVAILABLE"}}`)
	}))
	defer srv.Close()

	g := NewGemini(GeminiOptions{BaseURL: srv.URL, Model: "m"})

	_, err := g.GenerateInline(context.Background(), []byte("x"), "audio/wav", Prompt{})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "overloaded")

	status = http.StatusBadRequest
	_, err = g.GenerateInline(context.Background(), []byte("x"), "audio/wav", Prompt{})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestGemini_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	_, err := NewGemini(GeminiOptions{BaseURL: srv.URL, Model: "m"}).
		GenerateInline(context.Background(), []byte("x"), "audio/wav", Prompt{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGemini_FileLifecycle(t *testing.T) {
	var deleted int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/upload/v1beta/files":
			b, _ := io.ReadAll(r.Body)
			assert.Equal(t, "payload", string(b))
			assert.Equal(t, "raw", r.Header.Get("X-Goog-Upload-Protocol"))
			_, _ = io.WriteString(w, `{"file":{"name":"files/f1","uri":"https://g/files/f1","state":"PROCESSING"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/v1beta/files/f1":
			_, _ = io.WriteString(w, `{"name":"files/f1","uri":"https://g/files/f1","mimeType":"audio/mpeg","state":"ACTIVE"}`)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":generateContent"):
			var body geminiRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://g/files/f1", body.Contents[0].Parts[0].FileData.FileURI)
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"done"}]}}]}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/v1beta/files/f1":
			deleted++
			_, _ = io.WriteString(w, `{}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	g := NewGemini(GeminiOptions{BaseURL: srv.URL, Model: "m"})
	ctx := context.Background()

	f, err := g.Upload(ctx, strings.NewReader("payload"), 7, "audio/mpeg", "a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "files/f1", f.Name)
	assert.Equal(t, "audio/mpeg", f.MimeType)
	assert.Equal(t, FileStateProcessing, f.State)

	f, err = g.GetFile(ctx, f.Name)
	require.NoError(t, err)
	assert.Equal(t, FileStateActive, f.State)

	out, err := g.GenerateFromFile(ctx, f, Prompt{})
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	require.NoError(t, g.DeleteFile(ctx, f.Name))
	assert.Equal(t, 1, deleted)
}

func TestWhisper_GenerateInline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe-with-timestamps", r.URL.Path)
		file, hdr, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.mp3", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"a b","segments":[{"start":1.2,"end":2,"text":"a"},{"start":3661,"end":3662,"text":"b"}],"language":"en"}`)
	}))
	defer srv.Close()

	out, err := NewWhisper(srv.URL, 0).GenerateInline(context.Background(), []byte("x"), "audio/mpeg", Prompt{})
	require.NoError(t, err)
	assert.Equal(t, "[00:01] a\n[01:01:01] b", out)
}
