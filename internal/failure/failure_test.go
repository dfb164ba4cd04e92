package failure

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "none"},
		{"validation", Validation("bad %s", "stage"), "validation"},
		{"integration", &IntegrationFailure{Service: "transcription", StatusCode: 503}, "integration"},
		{"wrapped malformed", fmt.Errorf("generate: %w", &MalformedResponse{Service: "generation"}), "malformed_response"},
		{"tool", &ToolExecutionFailure{Tool: "ffmpeg", Operation: "trim", ExitCode: 1}, "tool_execution"},
		{"plain", errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestErrorPrefixes(t *testing.T) {
	integration := &IntegrationFailure{Service: "transcription", StatusCode: 500, Body: "upstream down"}
	assert.Equal(t, "integration: transcription: status 500: upstream down", integration.Error())

	malformed := &MalformedResponse{Service: "generation", Err: errors.New("unexpected end of JSON input"), Snippet: "{\"overlay\":"}
	assert.True(t, strings.HasPrefix(malformed.Error(), "malformed response: generation"))

	tool := &ToolExecutionFailure{Tool: "ffmpeg", Operation: "extract-audio", ExitCode: 1, Diagnostics: "No such file"}
	assert.Equal(t, "media tool: ffmpeg extract-audio exited with code 1: No such file", tool.Error())
}

func TestIntegrationFailureTruncatesBody(t *testing.T) {
	err := &IntegrationFailure{Service: "transcription", StatusCode: 400, Body: strings.Repeat("x", 1000)}
	assert.LessOrEqual(t, len(err.Error()), len("integration: transcription: status 400: ")+MaxResponseBodyLength)
}

func TestUnwrap(t *testing.T) {
	root := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("stage: %w", &IntegrationFailure{Service: "generation", Err: root})
	assert.ErrorIs(t, err, root)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("  boom  ")))
	assert.Len(t, []rune(Message(errors.New(strings.Repeat("é", 500)))), MaxErrorMessageLength)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "ñañ", Truncate("ñañaña", 3))
}

func TestTailDiagnostics(t *testing.T) {
	stderr := strings.Join([]string{
		"ffmpeg version 6.0",
		"  configuration: --enable-gpl",
		"  libavutil      58.  2.100",
		"Input #0, mov,mp4, from 'in.mp4':",
		"    Stream #0:0: Video: h264",
		"line a",
		"line b",
		"line c",
		"",
		"in.mp4: Invalid data found when processing input",
	}, "\n")

	got := TailDiagnostics(stderr)
	assert.Equal(t, "Input #0, mov,mp4, from 'in.mp4': | line a | line b | line c | in.mp4: Invalid data found when processing input", got)
	assert.NotContains(t, got, "configuration")
}

func TestTailDiagnosticsBounded(t *testing.T) {
	stderr := strings.Repeat(strings.Repeat("e", 200)+"\n", 10)
	assert.Len(t, TailDiagnostics(stderr), MaxToolDiagnosticLength)
}
