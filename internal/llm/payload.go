package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPayload is returned when a model reply carries no text at all
var ErrEmptyPayload = errors.New("empty payload")

// ExtractJSON pulls the JSON object out of free-text model output.
// It strips a surrounding code fence and any prose around the outermost braces.
func ExtractJSON(content string) (string, error) {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return "", ErrEmptyPayload
	}
	if trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' {
		return trimmed, nil
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object found (payload snippet: %s)", Snippet(trimmed))
	}
	return strings.TrimSpace(trimmed[start : end+1]), nil
}

// DecodeJSON extracts the JSON object from content and unmarshals it into target
func DecodeJSON(content string, target any) error {
	payload, err := ExtractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return fmt.Errorf("%w (payload snippet: %s)", err, Snippet(payload))
	}
	return nil
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t")
	// language tag on the fence line
	if nl := strings.IndexAny(body, "\r\n"); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// Snippet flattens and shortens content for error messages
func Snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 120
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
