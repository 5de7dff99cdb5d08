package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultRequestTimeout = 30 * time.Second

	// bodyPrefixLen bounds how much body text is interpolated into the
	// classification prompt.
	bodyPrefixLen = 200
)

// promptTemplate is the fixed single-turn classification prompt. The model
// is instructed to answer with exactly one category name.
const promptTemplate = `Classify this email into ONE category:
Work, Personal, Priority, Newsletter, Promotional, Spam.

Subject: %s
Body: %s
Sender: %s

Return only category name.`

// LLMConfig holds settings for the chat-completions backend
type LLMConfig struct {
	BaseURL        string
	Model          string
	APIKey         string
	RequestTimeout time.Duration
}

// LLMClient issues single-turn classification requests against an
// OpenAI-style chat-completions endpoint.
type LLMClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewLLMClient creates a new LLMClient
func NewLLMClient(cfg *LLMConfig) *LLMClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &LLMClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Classify sends one classification request and returns the model's
// trimmed answer. No retry on transient failure: errors surface to the
// caller, which in the worker is the per-message skip path.
func (c *LLMClient) Classify(ctx context.Context, subject, body, sender string) (string, error) {
	prefix := body
	if len(prefix) > bodyPrefixLen {
		prefix = prefix[:bodyPrefixLen]
	}

	prompt := fmt.Sprintf(promptTemplate, subject, prefix, sender)

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.0,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling classification backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr chatErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("backend error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("backend error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("backend returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
