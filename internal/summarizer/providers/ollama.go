package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

const (
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// OllamaProvider summarizes with a model served by a local Ollama daemon.
// It needs no API key.
type OllamaProvider struct {
	Config
	client *ollama.Client
}

// NewOllamaProvider creates a new instance of the Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	host := config.BaseURL
	if host == "" {
		host = defaultOllamaHost
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	return &OllamaProvider{
		Config: config,
		client: ollama.NewClient(u, &http.Client{Timeout: config.timeout()}),
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return ProviderOllama
}

// Summarize implements the LLMProvider interface for Ollama
func (p *OllamaProvider) Summarize(ctx context.Context, req Request) (string, error) {
	stream := false
	options := map[string]any{"num_predict": maxTokens(req)}
	if req.Deterministic {
		options["temperature"] = 0
		options["seed"] = DeterministicSeed
	}

	genReq := &ollama.GenerateRequest{
		Model:   p.model(defaultOllamaModel),
		Prompt:  buildPrompt(req),
		Stream:  &stream,
		Options: options,
	}

	var b strings.Builder
	err := p.client.Generate(ctx, genReq, func(gr ollama.GenerateResponse) error {
		b.WriteString(gr.Response)
		return nil
	})
	if err != nil {
		var statusErr ollama.StatusError
		if errors.As(err, &statusErr) {
			return "", statusError(ProviderOllama, statusErr.StatusCode, statusErr.ErrorMessage)
		}
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	summary := strings.TrimSpace(b.String())
	if summary == "" {
		return "", errors.New("ollama: empty response")
	}
	return summary, nil
}
