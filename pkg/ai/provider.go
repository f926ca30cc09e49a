// Package ai defines the text-completion collaborator used by AI-assisted
// response modes. The engine only ever asks for a completion and applies
// its own fallback policy; provider failures never reach mock consumers.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider produces text completions for response synthesis.
type Provider interface {
	// Complete produces a completion for the request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider identifier (e.g., "openai", "ollama").
	Name() string
}

// CompletionRequest is the input for a completion.
type CompletionRequest struct {
	// Prompt is the user-authored generation prompt.
	Prompt string `json:"prompt"`

	// FormatHint nudges the output shape: "json", "html", "xml", "yaml",
	// "csv", or "plain".
	FormatHint string `json:"formatHint,omitempty"`

	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int `json:"maxTokens,omitempty"`
}

// CompletionResponse carries the provider's output.
type CompletionResponse struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokensUsed,omitempty"`
}

// Common errors.
var (
	// ErrNotConfigured is returned when no provider has been set up.
	ErrNotConfigured = errors.New("AI provider not configured")

	// ErrInvalidResponse is returned when the provider output cannot be
	// used (e.g. requested JSON does not parse).
	ErrInvalidResponse = errors.New("invalid response from provider")
)

// ProviderError wraps provider failures with the provider name.
type ProviderError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// StripCodeFences removes markdown code fences from a completion. Models
// frequently wrap JSON in ```json ... ``` despite being told not to.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if strings.HasSuffix(strings.TrimSpace(s), "```") {
			s = strings.TrimSpace(s)
			s = strings.TrimSpace(s[:len(s)-3])
		}
	}
	return s
}
