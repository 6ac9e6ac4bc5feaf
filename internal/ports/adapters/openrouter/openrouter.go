// Package openrouter implements text generation against the OpenRouter
// chat completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/limiter"
	"github.com/reelforge/reelforge/internal/ports"
)

const (
	baseURL      = "https://openrouter.ai/api/v1"
	providerName = "openrouter"
)

// Client calls OpenRouter under the shared provider pool. Transient
// failures are retried; HTTP 4xx responses are treated as permanent.
type Client struct {
	apiKey string
	model  string
	http   *http.Client
	pool   *limiter.Pool
	log    zerolog.Logger

	base string
}

var _ ports.StructuredGenerator = (*Client)(nil)

func New(apiKey, defaultModel string, pool *limiter.Pool, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		model:  defaultModel,
		http:   &http.Client{Timeout: 2 * time.Minute},
		pool:   pool,
		log:    log,
		base:   baseURL,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate returns the completion text for req.
func (c *Client) Generate(ctx context.Context, req ports.GenRequest) (string, error) {
	return c.complete(ctx, req, nil)
}

// GenerateJSON forces JSON output mode and strips markdown fencing, so
// the returned bytes unmarshal directly.
func (c *Client) GenerateJSON(ctx context.Context, req ports.GenRequest) ([]byte, error) {
	text, err := c.complete(ctx, req, &respFormat{Type: "json_object"})
	if err != nil {
		return nil, err
	}
	return []byte(stripFences(text)), nil
}

func (c *Client) complete(ctx context.Context, req ports.GenRequest, format *respFormat) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:          model,
		Messages:       messages,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: format,
	}

	var out string
	err := limiter.Retry(ctx, c.log, "openrouter.complete", func(ctx context.Context) error {
		return c.pool.Do(ctx, providerName, func(ctx context.Context) error {
			text, err := c.doRequest(ctx, body)
			if err != nil {
				return err
			}
			out = text
			return nil
		})
	})
	return out, err
}

func (c *Client) doRequest(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("openrouter: status %d: %s", resp.StatusCode, truncate(data, 200))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", limiter.Permanent(err)
		}
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openrouter: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openrouter: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// stripFences removes a ```json ... ``` wrapper if the model added one.
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

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
