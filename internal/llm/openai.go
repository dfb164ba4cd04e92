package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator talks to any OpenAI-compatible chat completion endpoint
type OpenAIGenerator struct {
	client openai.Client
	cfg    Config
}

// NewOpenAIGenerator creates a generator using the openai-go client
func NewOpenAIGenerator(cfg Config, opts ...option.RequestOption) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAIGenerator{
		client: openai.NewClient(clientOpts...),
		cfg:    cfg,
	}
}

// Complete sends the prompt as a JSON-mode chat completion
func (g *OpenAIGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(prompt),
		},
		Model:       g.cfg.Model,
		Temperature: openai.Float(0.7),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		integration := &failure.IntegrationFailure{Service: serviceName, Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			integration.StatusCode = apiErr.StatusCode
			integration.Err = nil
			integration.Body = apiErr.Message
		}
		return "", integration
	}

	if len(resp.Choices) == 0 {
		return "", emptyReply("no choices returned")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", emptyReply("finish_reason=" + string(resp.Choices[0].FinishReason))
	}
	return content, nil
}
