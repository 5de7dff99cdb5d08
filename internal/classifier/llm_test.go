package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMClientClassify(t *testing.T) {
	t.Run("sends prompt and returns trimmed answer", func(t *testing.T) {
		var gotReq chatRequest
		var gotAuth string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"role": "assistant", "content": " Newsletter \n"}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewLLMClient(&LLMConfig{
			BaseURL: server.URL,
			Model:   "llama-3.1-8b-instant",
			APIKey:  "test-key",
		})

		answer, err := client.Classify(context.Background(), "Weekly roundup", "lots of news", "news@example.com")
		require.NoError(t, err)

		assert.Equal(t, "Newsletter", answer)
		assert.Equal(t, "Bearer test-key", gotAuth)
		assert.Equal(t, "llama-3.1-8b-instant", gotReq.Model)
		assert.Zero(t, gotReq.Temperature)
		require.Len(t, gotReq.Messages, 1)
		assert.Contains(t, gotReq.Messages[0].Content, "Subject: Weekly roundup")
		assert.Contains(t, gotReq.Messages[0].Content, "Sender: news@example.com")
	})

	t.Run("truncates body prefix in prompt", func(t *testing.T) {
		var gotReq chatRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": "Work"}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewLLMClient(&LLMConfig{BaseURL: server.URL, Model: "m", APIKey: "k"})

		longBody := strings.Repeat("x", 1000)
		_, err := client.Classify(context.Background(), "subj", longBody, "a@b.c")
		require.NoError(t, err)

		assert.NotContains(t, gotReq.Messages[0].Content, strings.Repeat("x", bodyPrefixLen+1))
		assert.Contains(t, gotReq.Messages[0].Content, strings.Repeat("x", bodyPrefixLen))
	})

	t.Run("surfaces backend error message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "rate limit exceeded"},
			})
		}))
		defer server.Close()

		client := NewLLMClient(&LLMConfig{BaseURL: server.URL, Model: "m", APIKey: "k"})

		_, err := client.Classify(context.Background(), "s", "b", "x@y.z")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit exceeded")
	})

	t.Run("empty choices is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}))
		defer server.Close()

		client := NewLLMClient(&LLMConfig{BaseURL: server.URL, Model: "m", APIKey: "k"})

		_, err := client.Classify(context.Background(), "s", "b", "x@y.z")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no choices")
	})
}
