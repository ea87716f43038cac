package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNewGenerationService_RequiresAPIKey(t *testing.T) {
	_, err := NewGenerationService(LLMConfig{})
	require.Error(t, err)

	_, err = NewVisionService(LLMConfig{})
	require.Error(t, err)
}

func TestNewGenerationService_Defaults(t *testing.T) {
	svc, err := NewGenerationService(LLMConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.NoError(t, svc.Close())
}

func TestGenerate(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Tokens expire after 1h. [1] "}}]}`))
	}))
	defer server.Close()

	svc, err := NewGenerationService(LLMConfig{APIKey: "sk-test", BaseURL: server.URL, Model: "gpt-test"})
	require.NoError(t, err)

	res := svc.Generate(context.Background(), domain.GenerationRequest{
		System: "be terse", Prompt: "how long?", MaxTokens: 50, Temperature: 0.2,
	})
	require.True(t, res.Available, res.Reason)
	assert.Equal(t, "Tokens expire after 1h. [1]", res.Text)

	assert.Equal(t, "gpt-test", got["model"])
	assert.EqualValues(t, 50, got["max_tokens"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "how long?", messages[1].(map[string]any)["content"])
}

func TestGenerate_Degrades(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, "rate limited"},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, "boom"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"empty", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, "empty completion"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc, err := NewGenerationService(LLMConfig{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)
			res := svc.Generate(context.Background(), domain.GenerationRequest{Prompt: "q"})
			assert.False(t, res.Available)
			assert.Contains(t, res.Reason, tt.reason)
		})
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	good, _ := NewGenerationService(LLMConfig{APIKey: "good", BaseURL: server.URL})
	assert.NoError(t, good.Ping(context.Background()))

	bad, _ := NewVisionService(LLMConfig{APIKey: "bad", BaseURL: server.URL})
	assert.Error(t, bad.Ping(context.Background()))
}
