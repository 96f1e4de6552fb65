package llm

import (
	"context"
	"fmt"
	"os"
)

// APIKeyEnvVar returns the environment variable holding the API key for a
// provider, or "" if the provider needs none.
func APIKeyEnvVar(providerType string) string {
	switch providerType {
	case "groq":
		return "GROQ_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// NewProvider creates an LLM provider of the given type whose default model
// is model. Supported types: groq, openai, anthropic, google, openrouter, ollama.
func NewProvider(ctx context.Context, providerType string, model string) (Provider, error) {
	var apiKey string
	if env := APIKeyEnvVar(providerType); env != "" {
		apiKey = os.Getenv(env)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is not set", env)
		}
	}

	switch providerType {
	case "groq":
		return NewGroqProvider(apiKey, model, os.Getenv("GROQ_BASE_URL")), nil
	case "openai":
		return NewOpenAIProvider(apiKey, model), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey, model), nil
	case "google":
		p, err := NewGoogleProvider(ctx, apiKey, model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openrouter":
		return NewOpenRouterProvider(apiKey, model), nil
	case "ollama":
		return NewOllamaProvider(os.Getenv("OLLAMA_HOST"), model), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
