package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

func TestCompleteSendsBearerAndReadsUsage(t *testing.T) {
	var (
		auth    string
		request completionRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello!"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	}))
	defer server.Close()

	client := New(server.URL+"/v1", "deepseek-chat", "sk-test", nil)
	completion, err := client.Complete(context.Background(), []domain.ChatMessage{{Role: "user", Content: "hi"}}, domain.CompletionParams{Temperature: 0.7, MaxTokens: 1000})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if completion != (domain.Completion{Text: "Hello!", InputTokens: 12, OutputTokens: 3}) {
		t.Fatalf("unexpected completion: %+v", completion)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if request.Model != "deepseek-chat" || request.MaxTokens != 1000 || request.Temperature != 0.7 {
		t.Fatalf("unexpected request: %+v", request)
	}
}

func TestNewAcceptsFullEndpoint(t *testing.T) {
	c := New("https://api.example.com/v1/chat/completions/", "m", "", nil)
	if c.endpoint != "https://api.example.com/v1/chat/completions" {
		t.Fatalf("unexpected endpoint %q", c.endpoint)
	}
}

func TestCompleteMapsStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, kind: domain.ErrTemporary},
		{name: "bad key", status: http.StatusUnauthorized, kind: domain.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			_, err := New(server.URL, "m", "k", nil).Complete(context.Background(), nil, domain.CompletionParams{})
			if !domain.IsKind(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	if _, err := New(server.URL, "m", "", nil).Complete(context.Background(), nil, domain.CompletionParams{}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
