// Package llm provides the language-model configuration and client abstractions.
// Every provider is reached through the same single-turn chat contract.
package llm

import "time"

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderMistral is Mistral's OpenAI-compatible chat completions API
	ProviderMistral Provider = "mistral"
	// ProviderOpenAI is the OpenAI chat completions API
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Default endpoints and models per provider.
const (
	MistralBaseURL = "https://api.mistral.ai/v1/"
	OpenAIBaseURL  = "https://api.openai.com/v1/"

	DefaultMistralModel = "mistral-medium"
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultGeminiModel  = "gemini-2.5-flash"
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	BaseURL  string // Ignored by the Gemini provider
	APIKey   string
	Model    string
	Timeout  time.Duration // Zero leaves the deadline to the caller's context
}

// DefaultConfig returns the default configuration (Mistral chat completions)
func DefaultConfig() *Config {
	return ProviderDefaults(ProviderMistral)
}

// ProviderDefaults returns the base URL and model a provider uses when none is configured.
func ProviderDefaults(provider Provider) *Config {
	switch provider {
	case ProviderOpenAI:
		return &Config{Provider: ProviderOpenAI, BaseURL: OpenAIBaseURL, Model: DefaultOpenAIModel}
	case ProviderGemini:
		return &Config{Provider: ProviderGemini, Model: DefaultGeminiModel}
	default:
		return &Config{Provider: ProviderMistral, BaseURL: MistralBaseURL, Model: DefaultMistralModel}
	}
}

// GetModel returns the requested model, or the configured default when empty
func (c *Config) GetModel(model string) string {
	if model != "" {
		return model
	}
	if c.Model != "" {
		return c.Model
	}
	return ProviderDefaults(c.Provider).Model
}

