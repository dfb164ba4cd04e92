package transcription

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0644))
	return path
}

func TestTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "it", r.FormValue("language"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "audio.wav", header.Filename)
		assert.Equal(t, "RIFF....WAVE", string(data))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": " Nessun dorma ",
			"language": "italian",
			"segments": [
				{"id": 0, "seek": 0, "start": 0.0, "end": 2.5, "text": " Nessun dorma", "tokens": [1,2], "avg_logprob": -0.2},
				{"id": 1, "seek": 0, "start": 2.5, "end": 5.0, "text": " Tu pure, o Principessa "}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/v1/", APIKey: "test-key"}, server.Client())

	result, err := client.Transcribe(context.Background(), writeAudio(t), "it")
	require.NoError(t, err)

	assert.Equal(t, "Nessun dorma", result.Text)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, "Nessun dorma", result.Segments[0].Text)
	assert.Equal(t, 2.5, result.Segments[1].Start)
	assert.Equal(t, "Tu pure, o Principessa", result.Segments[1].Text)
}

func TestTranscribeNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(strings.Repeat("upstream exploded ", 100)))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, server.Client())

	_, err := client.Transcribe(context.Background(), writeAudio(t), "en")
	require.Error(t, err)

	var integration *failure.IntegrationFailure
	require.True(t, errors.As(err, &integration))
	assert.Equal(t, http.StatusBadGateway, integration.StatusCode)
	assert.LessOrEqual(t, len(integration.Body), failure.MaxResponseBodyLength)
	assert.True(t, strings.HasPrefix(err.Error(), "integration: transcription: status 502"))
}

func TestTranscribeMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, server.Client())

	_, err := client.Transcribe(context.Background(), writeAudio(t), "en")
	require.Error(t, err)
	assert.Equal(t, "malformed_response", failure.Kind(err))
}

func TestTranscribeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, server.Client())

	_, err := client.Transcribe(context.Background(), writeAudio(t), "en")
	require.Error(t, err)
	assert.Equal(t, "integration", failure.Kind(err))
}

func TestTranscribeMissingAudio(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)

	_, err := client.Transcribe(context.Background(), "/nonexistent/audio.wav", "en")
	require.Error(t, err)
	assert.Equal(t, "internal", failure.Kind(err))
}
