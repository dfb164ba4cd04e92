package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
)

const (
	serviceName    = "translation"
	defaultTimeout = 30 * time.Second

	// maxBatchSize is the most text segments Cloud Translation accepts per request
	maxBatchSize = 128
)

// Translator converts one text between languages
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// BatchTranslator converts many texts in one round trip.
// The result has one entry per input, in order.
type BatchTranslator interface {
	Translator
	TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error)
}

// Config holds translation credentials
type Config struct {
	APIKey  string
	Timeout time.Duration
}

// New returns a Google translator, or a passthrough when no API key is configured
func New(ctx context.Context, cfg Config) (Translator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Passthrough{}, nil
	}
	return NewGoogleTranslator(ctx, cfg)
}

// Passthrough returns every text unchanged
type Passthrough struct{}

// Translate returns text as-is
func (Passthrough) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

// GoogleTranslator uses the Cloud Translation v2 API
type GoogleTranslator struct {
	svc     *translate.Service
	timeout time.Duration
}

// NewGoogleTranslator creates a translator authenticated with an API key
func NewGoogleTranslator(ctx context.Context, cfg Config, opts ...option.ClientOption) (*GoogleTranslator, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)

	svc, err := translate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation service: %w", err)
	}
	return &GoogleTranslator{svc: svc, timeout: cfg.Timeout}, nil
}

// Translate translates plain text from source to target
func (g *GoogleTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	out, err := g.TranslateBatch(ctx, []string{text}, source, target)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// TranslateBatch translates texts with one request per maxBatchSize segments.
// Blank texts are returned unchanged without being sent.
func (g *GoogleTranslator) TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)
	if source == target {
		return out, nil
	}

	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) != "" {
			pending = append(pending, i)
		}
	}

	for start := 0; start < len(pending); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		q := make([]string, len(chunk))
		for i, idx := range chunk {
			q[i] = texts[idx]
		}

		translated, err := g.list(ctx, q, source, target)
		if err != nil {
			return nil, err
		}
		for i, idx := range chunk {
			out[idx] = translated[i]
		}
	}
	return out, nil
}

func (g *GoogleTranslator) list(ctx context.Context, texts []string, source, target string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	call := g.svc.Translations.List(texts, target).Format("text").Context(ctx)
	if source != "" {
		call = call.Source(source)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, &failure.IntegrationFailure{Service: serviceName, Err: err}
	}
	if len(resp.Translations) != len(texts) {
		return nil, &failure.MalformedResponse{
			Service: serviceName,
			Err:     fmt.Errorf("got %d translations for %d texts to %s", len(resp.Translations), len(texts), target),
		}
	}

	out := make([]string, len(texts))
	for i, tr := range resp.Translations {
		out[i] = tr.TranslatedText
	}
	return out, nil
}
