package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/infrastructure/resilience"
)

const operationChat = "ollama.chat"

// Client talks to the Ollama /api/chat endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		// Callers bound each call with a context deadline; this is a backstop.
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Model() string {
	return c.model
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
	Options  chatOptions          `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage, params domain.CompletionParams) (domain.Completion, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options: chatOptions{
			Temperature: params.Temperature,
			NumPredict:  params.MaxTokens,
		},
	}

	call := func(callCtx context.Context) (domain.Completion, error) {
		var resp chatResponse
		if err := c.postJSON(callCtx, "/api/chat", req, &resp, "chat"); err != nil {
			return domain.Completion{}, err
		}
		return domain.Completion{
			Text:         strings.TrimSpace(resp.Message.Content),
			InputTokens:  resp.PromptEvalCount,
			OutputTokens: resp.EvalCount,
		}, nil
	}

	if c.executor == nil {
		completion, err := call(ctx)
		return completion, resilience.WrapTransportError(operationChat, err)
	}
	completion, err := resilience.Call(ctx, c.executor, operationChat, call, resilience.ClassifyTransportError)
	return completion, resilience.WrapTransportError(operationChat, err)
}
