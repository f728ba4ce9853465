// Package openaicompat is a ChatModel for providers exposing the OpenAI
// chat/completions API (DeepSeek, vLLM, LM Studio and similar).
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/infrastructure/resilience"
)

const operationChat = "openai.chat_completions"

type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New accepts either a base URL ("https://api.deepseek.com/v1") or the full
// chat/completions endpoint.
func New(baseURL, model, apiKey string, executor *resilience.Executor) *Client {
	endpoint := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}
	return &Client{
		endpoint:   endpoint,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Model() string {
	return c.model
}

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// StatusError is a non-2xx reply from the provider.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("chat completions status: %s", e.Status)
	}
	return fmt.Sprintf("chat completions status: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage, params domain.CompletionParams) (domain.Completion, error) {
	payload, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("marshal chat request: %w", err)
	}

	call := func(callCtx context.Context) (domain.Completion, error) {
		return c.do(callCtx, payload)
	}
	var completion domain.Completion
	if c.executor == nil {
		completion, err = call(ctx)
	} else {
		completion, err = resilience.Call(ctx, c.executor, operationChat, call, resilience.ClassifyTransportError)
	}
	if err != nil {
		return domain.Completion{}, resilience.WrapTransportError(operationChat, err)
	}
	return completion, nil
}

func (c *Client) do(ctx context.Context, payload []byte) (domain.Completion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.Completion{}, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("chat completions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return domain.Completion{}, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Completion{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return domain.Completion{}, errors.New("chat completions response has no choices")
	}
	return domain.Completion{
		Text:         decoded.Choices[0].Message.Content,
		InputTokens:  decoded.Usage.PromptTokens,
		OutputTokens: decoded.Usage.CompletionTokens,
	}, nil
}
