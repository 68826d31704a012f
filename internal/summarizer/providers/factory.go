package providers

import (
	"context"
	"fmt"
	"sort"
)

// ProviderFactory creates and returns configured providers
type ProviderFactory struct {
	// ProviderConfigs stores configuration for each provider
	ProviderConfigs map[string]Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(configs map[string]Config) *ProviderFactory {
	if configs == nil {
		configs = make(map[string]Config)
	}
	return &ProviderFactory{
		ProviderConfigs: configs,
	}
}

// RequiresAPIKey reports whether a provider cannot work without credentials.
func RequiresAPIKey(providerName string) bool {
	return providerName != ProviderOllama
}

// GetProvider returns an initialized provider instance for the specified provider name
func (f *ProviderFactory) GetProvider(ctx context.Context, providerName string) (LLMProvider, error) {
	config, exists := f.ProviderConfigs[providerName]
	if !exists {
		return nil, fmt.Errorf("configuration for provider '%s' not found", providerName)
	}
	if RequiresAPIKey(providerName) && config.APIKey == "" {
		return nil, fmt.Errorf("missing API key for provider '%s'", providerName)
	}

	switch providerName {
	case ProviderHuggingFace:
		return NewHuggingFaceProvider(config), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(config), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(config), nil
	case ProviderXAI:
		return NewXAIProvider(config), nil
	case ProviderGoogle:
		return NewGoogleProvider(ctx, config)
	case ProviderOllama:
		return NewOllamaProvider(config)
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}

// GetProviderChain returns an ordered list of fallback providers. Providers
// named in preferenceOrder come first, followed by any other configured
// provider in name order. The excluded provider (usually the primary) and
// providers that cannot be built are skipped.
func (f *ProviderFactory) GetProviderChain(ctx context.Context, preferenceOrder []string, exclude string) []LLMProvider {
	var chain []LLMProvider
	seen := map[string]bool{exclude: true}

	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if provider, err := f.GetProvider(ctx, name); err == nil {
			chain = append(chain, provider)
		}
	}

	for _, name := range preferenceOrder {
		add(name)
	}

	remaining := make([]string, 0, len(f.ProviderConfigs))
	for name := range f.ProviderConfigs {
		remaining = append(remaining, name)
	}
	sort.Strings(remaining)
	for _, name := range remaining {
		add(name)
	}

	return chain
}
