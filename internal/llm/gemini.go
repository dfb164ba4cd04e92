package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiGenerator talks to Google's Gemini models
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
	cfg    Config
}

// NewGeminiGenerator creates a Gemini client for cfg.Model
func NewGeminiGenerator(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0.7)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(SystemPrompt))

	return &GeminiGenerator{client: client, model: model, cfg: cfg}, nil
}

// Complete sends the prompt and returns the first text candidate
func (g *GeminiGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &failure.IntegrationFailure{Service: serviceName, Err: err}
	}
	return geminiText(resp)
}

// Close releases the underlying connection
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", emptyReply("no candidates returned")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", emptyReply("finish_reason=" + candidate.FinishReason.String())
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", emptyReply("candidate carried no text parts")
	}
	return content, nil
}
