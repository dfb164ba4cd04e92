package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
)

const (
	serviceName    = "generation"
	defaultTimeout = 120 * time.Second

	// SystemPrompt frames every content request
	SystemPrompt = "You write short-form social video copy for classical music and opera. Respond with a single JSON object only."
)

// Generator sends one prompt to a chat model and returns its free-text reply
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures the chat model provider
type Config struct {
	Provider string // openai or gemini
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewGenerator builds the generator for cfg.Provider
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return NewOpenAIGenerator(cfg), nil
	case "gemini":
		return NewGeminiGenerator(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

func emptyReply(reason string) error {
	return &failure.MalformedResponse{Service: serviceName, Err: fmt.Errorf("%w: %s", ErrEmptyPayload, reason)}
}
