package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/workitem-scout/internal/common"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "anthropic", config: Config{Provider: "anthropic", APIKey: "test-key"}},
		{name: "default provider is anthropic", config: Config{APIKey: "test-key"}},
		{name: "openai", config: Config{Provider: "OpenAI", APIKey: "test-key"}},
		{name: "missing API key", config: Config{Provider: "openai"}, wantErr: true},
		{name: "unknown provider", config: Config{Provider: "bard", APIKey: "test-key"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid config",
			config: Config{APIKey: "test-key"},
		},
		{
			name:    "missing API key",
			config:  Config{APIKey: ""},
			wantErr: true,
		},
		{
			name: "custom model and settings",
			config: Config{
				APIKey:      "test-key",
				Model:       "gpt-4",
				Temperature: 0.5,
				MaxTokens:   200,
				BaseURL:     "http://localhost:1234/v1/",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newOpenAIClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}

	client, err := newOpenAIClient(Config{APIKey: "k", BaseURL: "http://localhost:1234/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:1234/v1", client.(*openAIClient).baseURL)
	assert.Equal(t, defaultOpenAIModel, client.(*openAIClient).model)
}

func TestOpenAIComplete(t *testing.T) {
	tests := []struct {
		name          string
		responseBody  string
		statusCode    int
		want          string
		wantErr       bool
		wantRetryable bool
	}{
		{
			name:         "successful completion",
			statusCode:   http.StatusOK,
			responseBody: `{"choices":[{"message":{"role":"assistant","content":"[{\"id\":7}]"}}]}`,
			want:         `[{"id":7}]`,
		},
		{
			name:         "no choices",
			statusCode:   http.StatusOK,
			responseBody: `{"choices":[]}`,
			wantErr:      true,
		},
		{
			name:         "bad request is not retried",
			statusCode:   http.StatusBadRequest,
			responseBody: `{"error":{"message":"bad"}}`,
			wantErr:      true,
		},
		{
			name:          "rate limited",
			statusCode:    http.StatusTooManyRequests,
			responseBody:  `{}`,
			wantErr:       true,
			wantRetryable: true,
		},
		{
			name:          "server error",
			statusCode:    http.StatusBadGateway,
			responseBody:  `upstream`,
			wantErr:       true,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				body, err := io.ReadAll(r.Body)
				assert.NoError(t, err)
				assert.NoError(t, json.Unmarshal(body, &gotBody))

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL + "/v1", Model: "gpt-test"})
			require.NoError(t, err)

			got, err := client.Complete(context.Background(), "system text", "user text")
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantRetryable, common.IsRetryable(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			assert.Equal(t, "gpt-test", gotBody["model"])
			messages, ok := gotBody["messages"].([]any)
			require.True(t, ok)
			require.Len(t, messages, 2)
			assert.Equal(t, "system text", messages[0].(map[string]any)["content"])
			assert.Equal(t, "user text", messages[1].(map[string]any)["content"])
		})
	}
}

func TestAnthropicComplete(t *testing.T) {
	t.Run("concatenates text blocks", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"), r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

			var req map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "claude-test", req["model"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "msg_1",
				"type": "message",
				"role": "assistant",
				"model": "claude-test",
				"content": [{"type": "text", "text": "[{\"id\":"}, {"type": "text", "text": "7}]"}],
				"stop_reason": "end_turn",
				"usage": {"input_tokens": 10, "output_tokens": 5}
			}`))
		}))
		defer server.Close()

		client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "claude-test"})
		require.NoError(t, err)

		got, err := client.Complete(context.Background(), "system", "prompt")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":7}]`, got)
	})

	t.Run("server errors are retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
		}))
		defer server.Close()

		client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), "system", "prompt")
		require.Error(t, err)
		assert.True(t, common.IsRetryable(err))
	})

	t.Run("auth errors are not retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"no"}}`))
		}))
		defer server.Close()

		client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), "system", "prompt")
		require.Error(t, err)
		assert.False(t, common.IsRetryable(err))
	})
}
