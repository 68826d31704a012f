package providers

const (
	xaiAPIURL       = "https://api.x.ai/v1"
	defaultXAIModel = "grok-2-latest"
)

// NewXAIProvider creates a provider for xAI's Grok models, which speak the
// OpenAI chat completions protocol.
func NewXAIProvider(config Config) *OpenAIProvider {
	return newOpenAICompatible(ProviderXAI, config, xaiAPIURL)
}
