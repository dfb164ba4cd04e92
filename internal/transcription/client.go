package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

const (
	serviceName    = "transcription"
	defaultTimeout = 300 * time.Second
	defaultModel   = "whisper-1"
)

// Config captures the settings required to talk to a Whisper-compatible endpoint
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Result is the normalized transcription of one audio file
type Result struct {
	Text     string
	Segments models.Captions
}

// Client sends audio to a speech-to-text service
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a transcription client. A nil httpClient gets one bounded by cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type verboseResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio file with a language hint and returns text plus timed segments
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (*Result, error) {
	body, contentType, err := c.buildForm(audioPath, language)
	if err != nil {
		return nil, err
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "audio", "transcriptions")
	if err != nil {
		return nil, fmt.Errorf("transcription: build url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("transcription: new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &failure.IntegrationFailure{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &failure.IntegrationFailure{Service: serviceName, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &failure.IntegrationFailure{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Body:       failure.Truncate(string(payload), failure.MaxResponseBodyLength),
		}
	}

	var decoded verboseResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, &failure.MalformedResponse{
			Service: serviceName,
			Snippet: failure.Truncate(string(payload), 120),
			Err:     err,
		}
	}

	result := &Result{
		Text:     strings.TrimSpace(decoded.Text),
		Segments: make(models.Captions, 0, len(decoded.Segments)),
	}
	for _, seg := range decoded.Segments {
		result.Segments = append(result.Segments, models.Caption{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	return result, nil
}

func (c *Client) buildForm(audioPath, language string) (io.Reader, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("transcription: open audio: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("transcription: create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("transcription: copy audio: %w", err)
	}

	fields := map[string]string{
		"model":                     c.cfg.Model,
		"response_format":           "verbose_json",
		"timestamp_granularities[]": "segment",
	}
	if language != "" {
		fields["language"] = language
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("transcription: write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("transcription: close form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
