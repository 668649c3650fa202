// Package llamaserver implements llm.Client against a llama-server instance
// exposing the OpenAI-compatible chat-completions API.
package llamaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/finsentry/aml-insight/internal/config"
	"github.com/finsentry/aml-insight/internal/infrastructure/llm"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/pkg/errors"
)

// Client talks to one llama-server instance. It is safe for concurrent use.
type Client struct {
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	log         logging.Logger
}

var _ llm.Client = (*Client)(nil)

// NewClient builds a Client from configuration. A zero cfg.Timeout means no
// client-side timeout; CPU-bound generation can legitimately take minutes, so
// cancellation is left to the caller's context.
func NewClient(cfg config.LLMConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		log:         log.Named("llamaserver"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
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

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode completion request")
	}

	url := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build completion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Error("completion request failed", logging.Err(err))
		return nil, errors.LLMUnavailable(err).WithDetail("url=" + url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error("completion request rejected",
			logging.Int("status", resp.StatusCode))
		return nil, errors.New(errors.ErrCodeLLMUnavailable,
			fmt.Sprintf("llama-server returned status %d", resp.StatusCode)).
			WithDetail(string(snippet))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLLMParseFailure,
			"failed to decode completion response")
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New(errors.ErrCodeLLMParseFailure,
			"completion response contains no choices")
	}

	c.log.Debug("completion ok",
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("completion_tokens", parsed.Usage.CompletionTokens))

	return &llm.Response{
		Content:          parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}

// Ping implements llm.Client by probing the llama-server /health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	url := c.baseURL + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build health request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.LLMUnavailable(err).WithDetail("url=" + url)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrCodeLLMUnavailable,
			fmt.Sprintf("llama-server health returned status %d", resp.StatusCode))
	}
	return nil
}
