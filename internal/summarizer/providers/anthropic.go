package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicProvider implements the LLMProvider interface for Anthropic's Claude
type AnthropicProvider struct {
	Config
	client anthropic.Client
}

// NewAnthropicProvider creates a new instance of the Anthropic provider
func NewAnthropicProvider(config Config) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		// Retries are handled by the summarizer's retry policy.
		option.WithMaxRetries(0),
		option.WithRequestTimeout(config.timeout()),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicProvider{
		Config: config,
		client: anthropic.NewClient(opts...),
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// Summarize implements the LLMProvider interface for Anthropic
func (p *AnthropicProvider) Summarize(ctx context.Context, req Request) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("anthropic API key not provided")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model(defaultAnthropicModel)),
		MaxTokens: int64(maxTokens(req)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
		},
	}
	if req.Deterministic {
		params.Temperature = anthropic.Float(0)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", statusError(ProviderAnthropic, apiErr.StatusCode, apiErr.Error())
		}
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	summary := strings.TrimSpace(b.String())
	if summary == "" {
		return "", fmt.Errorf("empty response from Anthropic API")
	}
	return summary, nil
}
