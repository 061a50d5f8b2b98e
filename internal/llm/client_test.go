package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

func chatServer(t *testing.T, handler func(t *testing.T, req map[string]any) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		reply := handler(t, req)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 40},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGenerateText(t *testing.T) {
	srv := chatServer(t, func(t *testing.T, req map[string]any) string {
		require.Equal(t, "gpt-4.1-mini-2025-04-14", req["model"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 2)
		require.Equal(t, "system", msgs[0].(map[string]any)["role"])
		require.Nil(t, req["response_format"])
		return "a clean markdown body"
	})
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL, APIKey: "test-key"}, zap.NewNop())
	got, err := client.GenerateText(context.Background(), content.TextRequest{
		Model:        "gpt-4.1-mini-2025-04-14",
		SystemPrompt: "convert html to markdown",
		UserPrompt:   "<p>hello</p>",
		LogKey:       "article-body",
	})
	require.NoError(t, err)
	require.Equal(t, "a clean markdown body", got)
}

func TestExtractStructured(t *testing.T) {
	srv := chatServer(t, func(t *testing.T, req map[string]any) string {
		format := req["response_format"].(map[string]any)
		require.Equal(t, "json_object", format["type"])
		return `{"title":"Go Proverbs","author":"Rob Pike"}`
	})
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL, APIKey: "test-key"}, zap.NewNop())
	var out struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	err := client.ExtractStructured(context.Background(), content.TextRequest{
		Model:      "gpt-4.1-nano-2025-04-14",
		UserPrompt: "extract metadata",
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "Go Proverbs", out.Title)
	require.Equal(t, "Rob Pike", out.Author)
}

func TestExtractStructuredStripsFences(t *testing.T) {
	srv := chatServer(t, func(t *testing.T, req map[string]any) string {
		return "```json\n{\"title\":\"fenced\"}\n```"
	})
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL, APIKey: "test-key"}, zap.NewNop())
	var out struct {
		Title string `json:"title"`
	}
	err := client.ExtractStructured(context.Background(), content.TextRequest{Model: "m"}, &out)
	require.NoError(t, err)
	require.Equal(t, "fenced", out.Title)
}

func TestGenerateTextUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL, APIKey: "test-key"}, zap.NewNop())
	_, err := client.GenerateText(context.Background(), content.TextRequest{Model: "m", UserPrompt: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestEstimateCost(t *testing.T) {
	got := estimateCost("gpt-4.1-mini-2025-04-14", 1_000_000, 1_000_000)
	require.InDelta(t, 0.75, got, 1e-9)
	require.Zero(t, estimateCost("unknown-model", 500, 500))
}
