// Package openai implements streaming chat completions against the
// OpenAI API (or any server speaking the same protocol).
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ev-faq-dialogue-service/internal/observability/metrics"
	"ev-faq-dialogue-service/internal/service/llm"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

// chatRequest is the request body for /chat/completions.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
}

// streamChunk is one SSE data frame of a streaming completion.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Client streams chat completions over SSE.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// New creates a completion client. An empty apiKey skips the
// Authorization header, which suits local OpenAI-compatible servers.
func New(baseURL, model, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics.DefaultMetrics,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Stream sends the chat transcript and streams the reply through cb.
func (c *Client) Stream(ctx context.Context, messages []llm.Message, cb llm.StreamCallback) error {
	start := time.Now()
	err := c.stream(ctx, messages, cb)
	c.metrics.RecordGeneration(err, time.Since(start).Seconds())
	return err
}

func (c *Client) stream(ctx context.Context, messages []llm.Message, cb llm.StreamCallback) error {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat completion: status %d: %s", resp.StatusCode, string(errBody))
	}

	reader := bufio.NewReader(resp.Body)
	var full strings.Builder

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			cb(full.String(), true)
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Tolerate frames we don't understand; the [DONE]
			// sentinel ends the stream, not a parse failure.
			continue
		}

		if len(chunk.Choices) > 0 {
			content := chunk.Choices[0].Delta.Content
			if content != "" {
				full.WriteString(content)
				cb(content, false)
			}
		}
	}

	// Stream ended without the [DONE] sentinel; deliver what arrived.
	cb(full.String(), true)
	return nil
}
