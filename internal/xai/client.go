// Package xai wraps the xAI chat-completions API used for content generation.
package xai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	aerrors "github.com/getrucky/marketing-agent/internal/errors"
)

const (
	apiBase          = "https://api.x.ai/v1"
	defaultModel     = "grok-3-mini"
	defaultMaxTokens = 100
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the xAI chat-completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient HTTPClient
	logger     zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// NewClient creates an xAI API client.
func NewClient(apiKey string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    apiBase,
		apiKey:     apiKey,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "xai").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ModelID returns the configured model name.
func (c *Client) ModelID() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a blocking chat completion and returns the first choice text.
func (c *Client) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	cr := chatRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: 0.9,
	}
	if system != "" {
		cr.Messages = append(cr.Messages, chatMessage{Role: "system", Content: system})
	}
	cr.Messages = append(cr.Messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(cr)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("xai http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", apiError(resp, raw)
	}

	var cr2 chatResponse
	if err := json.Unmarshal(raw, &cr2); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if cr2.Error != nil {
		return "", aerrors.NewAPIError("xai", resp.StatusCode, cr2.Error.Message)
	}
	if len(cr2.Choices) == 0 {
		return "", aerrors.NewAPIError("xai", resp.StatusCode, "empty choices")
	}

	c.logger.Debug().
		Str("model", cr.Model).
		Str("finish_reason", cr2.Choices[0].FinishReason).
		Int("prompt_tokens", cr2.Usage.PromptTokens).
		Int("completion_tokens", cr2.Usage.CompletionTokens).
		Msg("completion")

	return cr2.Choices[0].Message.Content, nil
}

// apiError converts an HTTP error response into a typed APIError, carrying
// the Retry-After hint when the service sent one.
func apiError(resp *http.Response, raw []byte) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := string(raw)
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}

	apiErr := aerrors.NewAPIError("xai", resp.StatusCode, msg)
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			apiErr.RetryAfter = secs
		}
	}
	return apiErr
}
