// Package llm implements the text generation collaborator over any
// OpenAI-compatible chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
	"github.com/C41M50N/readr-convex-hackathon/internal/telemetry"
)

// ModelInfo carries pricing used for cost accounting.
type ModelInfo struct {
	Name                string
	InputCostPer1MUSD   float64
	OutputCostPer1MUSD  float64
}

// Known models and their per-1M-token prices in USD. Unknown models still
// work; their cost is reported as zero.
var modelRegistry = map[string]ModelInfo{
	"gpt-4.1-mini-2025-04-14": {Name: "GPT-4.1 Mini", InputCostPer1MUSD: 0.15, OutputCostPer1MUSD: 0.60},
	"gpt-4.1-nano-2025-04-14": {Name: "GPT-4.1 Nano", InputCostPer1MUSD: 0.10, OutputCostPer1MUSD: 0.40},
	"gemini-2.5-flash-lite-preview-06-17": {Name: "Gemini 2.5 Flash Lite", InputCostPer1MUSD: 0.05, OutputCostPer1MUSD: 0.20},
}

// Config controls the chat completions client.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ content.TextGenerator = (*Client)(nil)

// New builds a Client. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// GenerateText runs one chat completion and returns the assistant message.
func (c *Client) GenerateText(ctx context.Context, req content.TextRequest) (string, error) {
	return c.complete(ctx, req, false)
}

// ExtractStructured runs one chat completion in JSON mode and decodes the
// assistant message into out.
func (c *Client) ExtractStructured(ctx context.Context, req content.TextRequest, out any) error {
	text, err := c.complete(ctx, req, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
		return fmt.Errorf("decode structured response: %w", err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, req content.TextRequest, jsonMode bool) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("llm endpoint is not configured")
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	payload := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: temperature,
	}
	if jsonMode {
		payload.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat completion %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	elapsed := time.Since(start)
	cost := estimateCost(req.Model, decoded.Usage.PromptTokens, decoded.Usage.CompletionTokens)
	telemetry.ObserveLLMCall(req.Model, elapsed, cost)
	c.logger.Debug("model call finished",
		zap.String("log_key", req.LogKey),
		zap.String("model", req.Model),
		zap.Duration("elapsed", elapsed),
		zap.Int("prompt_tokens", decoded.Usage.PromptTokens),
		zap.Int("completion_tokens", decoded.Usage.CompletionTokens),
		zap.Float64("cost_usd", cost),
	)

	return decoded.Choices[0].Message.Content, nil
}

func estimateCost(model string, promptTokens, completionTokens int) float64 {
	info, ok := modelRegistry[model]
	if !ok {
		return 0
	}
	in := float64(promptTokens) / 1_000_000 * info.InputCostPer1MUSD
	out := float64(completionTokens) / 1_000_000 * info.OutputCostPer1MUSD
	return in + out
}

// stripFences removes a markdown code fence wrapper some models emit in
// JSON mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
