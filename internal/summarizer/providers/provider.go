// Package providers contains the summarization backends the service can
// call: hosted model APIs and a local Ollama daemon.
package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/localrivet/protext/internal/resilience/retry"
)

const (
	// Provider constants
	ProviderHuggingFace = "huggingface"
	ProviderAnthropic   = "anthropic"
	ProviderOpenAI      = "openai"
	ProviderGoogle      = "google"
	ProviderXAI         = "xai"
	ProviderOllama      = "ollama"

	// Default settings
	DefaultTimeout = 30 * time.Second

	// DeterministicSeed is sent to backends that accept a sampling seed.
	DeterministicSeed = 42
)

// Request is one summarization call. Word bounds are targets handed to the
// model; backends that think in tokens convert them.
type Request struct {
	Text          string
	MaxWords      int
	MinWords      int
	Deterministic bool
}

// LLMProvider defines the interface for different summarization backends
type LLMProvider interface {
	// Summarize returns a summary of req.Text within the requested bounds.
	Summarize(ctx context.Context, req Request) (string, error)

	// Name returns the provider name
	Name() string
}

// Config holds common configuration for providers
type Config struct {
	APIKey  string
	ModelID string
	// BaseURL overrides the vendor endpoint. Used for self-hosted gateways and tests.
	BaseURL string
	Timeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c Config) model(fallback string) string {
	if c.ModelID != "" {
		return c.ModelID
	}
	return fallback
}

// buildPrompt renders the instruction used by chat-style backends.
func buildPrompt(req Request) string {
	return fmt.Sprintf(
		"Summarize the following text in %d to %d words. "+
			"Keep the most important points and reply with the summary only.\n\n%s",
		req.MinWords, req.MaxWords, req.Text)
}

// maxTokens converts a word budget into an output token cap with headroom.
func maxTokens(req Request) int {
	n := req.MaxWords*2 + 16
	if n < 64 {
		n = 64
	}
	return n
}

// statusError wraps a non-success vendor status so the retry policy can
// classify it.
func statusError(provider string, code int, msg string) error {
	return fmt.Errorf("%s: %w", provider, &retry.HTTPError{StatusCode: code, Message: msg})
}
