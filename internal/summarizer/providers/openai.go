package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAIProvider implements the LLMProvider interface for OpenAI and for
// OpenAI-compatible endpoints.
type OpenAIProvider struct {
	Config
	name   string
	client *openai.Client
}

// NewOpenAIProvider creates a new instance of the OpenAI provider
func NewOpenAIProvider(config Config) *OpenAIProvider {
	return newOpenAICompatible(ProviderOpenAI, config, "")
}

func newOpenAICompatible(name string, config Config, defaultBaseURL string) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	switch {
	case config.BaseURL != "":
		clientConfig.BaseURL = config.BaseURL
	case defaultBaseURL != "":
		clientConfig.BaseURL = defaultBaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.timeout()}

	return &OpenAIProvider{
		Config: config,
		name:   name,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Summarize implements the LLMProvider interface for OpenAI
func (p *OpenAIProvider) Summarize(ctx context.Context, req Request) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("%s API key not provided", p.name)
	}

	model := defaultOpenAIModel
	if p.name == ProviderXAI {
		model = defaultXAIModel
	}

	chatReq := openai.ChatCompletionRequest{
		Model: p.model(model),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		MaxTokens: maxTokens(req),
	}
	if req.Deterministic {
		// A zero temperature is dropped by omitempty, so send the smallest
		// positive value instead.
		chatReq.Temperature = math.SmallestNonzeroFloat32
		seed := DeterministicSeed
		chatReq.Seed = &seed
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", statusError(p.name, apiErr.HTTPStatusCode, apiErr.Message)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", statusError(p.name, reqErr.HTTPStatusCode, reqErr.Error())
		}
		return "", fmt.Errorf("%s API call failed: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s API", p.name)
	}
	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("empty response from %s API", p.name)
	}
	return summary, nil
}
