package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGoogleModel = "gemini-1.5-flash"

// GoogleProvider implements the LLMProvider interface for Google's Gemini models
type GoogleProvider struct {
	Config
	client *genai.Client
}

// NewGoogleProvider creates a new instance of the Google provider
func NewGoogleProvider(ctx context.Context, config Config) (*GoogleProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("google API key not provided")
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}

	return &GoogleProvider{Config: config, client: client}, nil
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

// Close releases the underlying client connection.
func (p *GoogleProvider) Close() error {
	return p.client.Close()
}

// Summarize implements the LLMProvider interface for Google
func (p *GoogleProvider) Summarize(ctx context.Context, req Request) (string, error) {
	model := p.client.GenerativeModel(p.model(defaultGoogleModel))
	model.SetMaxOutputTokens(int32(maxTokens(req)))
	if req.Deterministic {
		model.SetTemperature(0)
		model.SetTopK(1)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(req)))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return "", statusError(ProviderGoogle, apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	summary := strings.TrimSpace(b.String())
	if summary == "" {
		return "", errors.New("gemini: empty response")
	}
	return summary, nil
}
