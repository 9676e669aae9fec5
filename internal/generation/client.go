package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/resumeai-platform/resumeai/internal/config"
	"github.com/resumeai-platform/resumeai/internal/metrics"
)

var (
	// ErrEmptyCompletion is returned when the model answered with no text.
	ErrEmptyCompletion = errors.New("no content generated")
	// ErrProvider wraps every failure reported by the model provider.
	ErrProvider = errors.New("generation provider error")
)

// Completion is the text returned by the model plus its token usage.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Client generates documents through an OpenAI-compatible chat-completions API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a Client. An empty BaseURL keeps the public OpenAI endpoint.
func NewClient(cfg config.OpenAIConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Complete runs one chat completion and returns its trimmed text.
func (c *Client) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	doc := string(p.Document)
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		Temperature: p.Temperature,
	})
	metrics.GenerationDuration.WithLabelValues(doc).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues(doc, "error").Inc()
		return nil, parseAPIError(err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if content == "" {
		metrics.GenerationsTotal.WithLabelValues(doc, "empty").Inc()
		return nil, ErrEmptyCompletion
	}

	metrics.GenerationsTotal.WithLabelValues(doc, "success").Inc()
	if resp.Usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(doc, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(doc, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return &Completion{
		Content:          content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck lists models, which costs nothing on OpenAI-compatible APIs.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError keeps the provider's message and wraps ErrProvider.
func parseAPIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("chat completion: %w: %w", err, ErrProvider)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, ErrProvider)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("chat completion API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, ErrProvider)
		}
		return fmt.Errorf("chat completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), ErrProvider)
	}

	return fmt.Errorf("chat completion request failed: %v: %w", err, ErrProvider)
}

// extractDetail reads the "detail" field some OpenAI-compatible providers use.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
