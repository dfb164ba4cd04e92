// Package failure defines the error classes a pipeline stage can end with and
// the bounded-text policy applied to anything persisted as an error message.
package failure

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Truncation limits for text that ends up in project records or logs.
const (
	MaxErrorMessageLength   = 300
	MaxToolDiagnosticLines  = 5
	MaxToolDiagnosticLength = 400
	MaxResponseBodyLength   = 300
)

// ValidationError rejects a request synchronously without mutating state
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IntegrationFailure is an external service that could not be reached or answered with a non-success status
type IntegrationFailure struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *IntegrationFailure) Error() string {
	var b strings.Builder
	b.WriteString("integration: ")
	b.WriteString(e.Service)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(Truncate(strings.TrimSpace(e.Body), MaxResponseBodyLength))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *IntegrationFailure) Unwrap() error {
	return e.Err
}

// MalformedResponse is an external service reply whose content failed structural parsing
type MalformedResponse struct {
	Service string
	Snippet string
	Err     error
}

func (e *MalformedResponse) Error() string {
	msg := "malformed response: " + e.Service
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Snippet != "" {
		msg += " (" + e.Snippet + ")"
	}
	return msg
}

func (e *MalformedResponse) Unwrap() error {
	return e.Err
}

// ToolExecutionFailure is a media tool invocation that did not exit cleanly
type ToolExecutionFailure struct {
	Tool        string
	Operation   string
	ExitCode    int
	Diagnostics string
	Err         error
}

func (e *ToolExecutionFailure) Error() string {
	msg := fmt.Sprintf("media tool: %s %s", e.Tool, e.Operation)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" exited with code %d", e.ExitCode)
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Diagnostics != "" {
		msg += ": " + e.Diagnostics
	}
	return msg
}

func (e *ToolExecutionFailure) Unwrap() error {
	return e.Err
}

// Kind names the class of err for metrics and logs
func Kind(err error) string {
	var (
		validation  *ValidationError
		integration *IntegrationFailure
		malformed   *MalformedResponse
		tool        *ToolExecutionFailure
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &integration):
		return "integration"
	case errors.As(err, &malformed):
		return "malformed_response"
	case errors.As(err, &tool):
		return "tool_execution"
	default:
		return "internal"
	}
}

// Message renders err as the bounded text stored on a failed project
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "unknown error"
	}
	return Truncate(msg, MaxErrorMessageLength)
}

// Truncate shortens s to at most max runes
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// TailDiagnostics keeps the last meaningful lines of a tool's stderr.
// Indented lines are stream/config dumps and are skipped.
func TailDiagnostics(stderr string) string {
	var kept []string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) > MaxToolDiagnosticLines {
		kept = kept[len(kept)-MaxToolDiagnosticLines:]
	}
	return Truncate(strings.Join(kept, " | "), MaxToolDiagnosticLength)
}
