package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const completionBody = `{
	"id": "cmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "mistral-medium",
	"choices": [
		{"index": 0, "message": {"role": "assistant", "content": "Here is the analysis"}, "finish_reason": "stop"},
		{"index": 1, "message": {"role": "assistant", "content": "second choice"}, "finish_reason": "stop"}
	]
}`

func newTestChatClient(t *testing.T, handler http.HandlerFunc) *ChatClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewChatClient(&Config{
		Provider: ProviderMistral,
		BaseURL:  srv.URL + "/v1/",
		APIKey:   "test-key",
		Model:    "mistral-medium",
	})
	require.NoError(t, err)
	return client
}

func TestChatClient_Complete_Success(t *testing.T) {
	var got chatRequest
	var authHeader, path string

	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authHeader = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	reply, err := client.Complete(context.Background(), "Analyze this resume", "")
	require.NoError(t, err)

	assert.Equal(t, "Here is the analysis", reply)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "mistral-medium", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, SystemInstruction, got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "Analyze this resume", got.Messages[1].Content)
}

func TestChatClient_Complete_ModelOverride(t *testing.T) {
	var got chatRequest
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	_, err := client.Complete(context.Background(), "prompt", "mistral-large-latest")
	require.NoError(t, err)
	assert.Equal(t, "mistral-large-latest", got.Model)
}

func TestChatClient_Complete_Non2xxIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestChatClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded"}}`))
	})

	_, err := client.Complete(context.Background(), "prompt", "")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, ProviderMistral, apiErr.Provider)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestChatClient_Complete_Unauthorized(t *testing.T) {
	client := newTestChatClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	})

	_, err := client.Complete(context.Background(), "prompt", "")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestChatClient_Complete_NoChoices(t *testing.T) {
	client := newTestChatClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	})

	_, err := client.Complete(context.Background(), "prompt", "")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Error(), "no choices")
}

func TestChatClient_Complete_MissingMessage(t *testing.T) {
	client := newTestChatClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": [{"index": 0, "finish_reason": "stop"}]}`))
	})

	_, err := client.Complete(context.Background(), "prompt", "")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Error(), "no message content")
}

func TestChatClient_Complete_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL + "/v1/"
	srv.Close()

	client, err := NewChatClient(&Config{Provider: ProviderOpenAI, BaseURL: baseURL, APIKey: "k"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "prompt", "")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ProviderOpenAI, apiErr.Provider)
	assert.Zero(t, apiErr.StatusCode)
}

func TestAPIError_Format(t *testing.T) {
	cause := errors.New("boom")
	err := &APIError{Provider: ProviderMistral, StatusCode: 500, Message: "request rejected", Cause: cause}

	assert.Equal(t, "mistral API error (status 500): request rejected: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := &APIError{Provider: ProviderGemini, Message: "no candidates in response"}
	assert.Equal(t, "gemini API error: no candidates in response", bare.Error())
}
