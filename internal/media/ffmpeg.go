package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
)

// FFmpeg wraps the ffmpeg and ffprobe binaries
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

type probeOutput struct {
	Format struct {
		Filename string `json:"filename"`
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the container duration of a media file in seconds
func (f *FFmpeg) ProbeDuration(ctx context.Context, inputPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		inputPath,
	}

	stdout, err := f.run(ctx, f.ffprobePath, "probe-duration", args)
	if err != nil {
		return 0, err
	}

	var out probeOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported no usable duration %q: %w", out.Format.Duration, err)
	}
	return duration, nil
}

// ExtractAudio writes a mono 16 kHz PCM wav track of the input
func (f *FFmpeg) ExtractAudio(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-acodec", "pcm_s16le",
		outputPath,
	}

	_, err := f.run(ctx, f.ffmpegPath, "extract-audio", args)
	return err
}

// Trim copies the [start, end) range of the input without re-encoding.
// A nil end keeps everything after start.
func (f *FFmpeg) Trim(ctx context.Context, inputPath, outputPath string, start float64, end *float64) error {
	args := []string{
		"-y",
		"-ss", formatSeconds(start),
		"-i", inputPath,
	}
	if end != nil {
		args = append(args, "-t", formatSeconds(*end-start))
	}
	args = append(args,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		outputPath,
	)

	_, err := f.run(ctx, f.ffmpegPath, "trim", args)
	return err
}

func (f *FFmpeg) run(ctx context.Context, binary, operation string, args []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		toolErr := &failure.ToolExecutionFailure{
			Tool:        binary,
			Operation:   operation,
			Diagnostics: failure.TailDiagnostics(stderr.String()),
			Err:         err,
		}
		if ctx.Err() == context.DeadlineExceeded {
			toolErr.Err = fmt.Errorf("timed out after %s", f.timeout)
			return nil, toolErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		}
		return nil, toolErr
	}

	return stdout.Bytes(), nil
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
