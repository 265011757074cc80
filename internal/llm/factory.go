package llm

import (
	"fmt"
)

// NewProvider creates a new LLM provider for the given provider type and
// model. Supported provider types: "openai", "anthropic". apiKey is
// resolved by the caller (environment first, then stored credentials).
func NewProvider(providerType, model, apiKey string) (Provider, error) {
	switch providerType {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model), nil

	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		return NewAnthropicProvider(apiKey, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
