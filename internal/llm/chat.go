package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ChatClient implements Client for OpenAI-compatible chat completions
// endpoints (Mistral, OpenAI). Requests are never retried.
type ChatClient struct {
	client   openai.Client
	config   *Config
	provider Provider
}

// NewChatClient creates a chat completions client from configuration
func NewChatClient(config *Config) (*ChatClient, error) {
	provider := config.Provider
	if provider == "" {
		provider = ProviderMistral
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = ProviderDefaults(provider).BaseURL
	}

	client := openai.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)

	return &ChatClient{
		client:   client,
		config:   config,
		provider: provider,
	}, nil
}

// Complete sends the system instruction and prompt and returns choices[0].message.content
func (c *ChatClient) Complete(ctx context.Context, prompt string, model string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.config.Timeout)
	defer cancel()

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.GetModel(model)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemInstruction),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &APIError{
				Provider:   c.provider,
				StatusCode: apiErr.StatusCode,
				Message:    "request rejected",
				Cause:      err,
			}
		}
		return "", &APIError{Provider: c.provider, Message: "request failed", Cause: err}
	}

	if len(completion.Choices) == 0 {
		return "", &APIError{Provider: c.provider, Message: "no choices in response"}
	}

	content := completion.Choices[0].Message.Content
	if content == "" {
		return "", &APIError{Provider: c.provider, Message: "no message content in first choice"}
	}

	return content, nil
}

// Close is a no-op; the underlying HTTP client holds no resources
func (c *ChatClient) Close() error {
	return nil
}
