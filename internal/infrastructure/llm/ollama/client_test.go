package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/infrastructure/resilience"
)

func TestCompleteSendsChatRequestAndReadsUsage(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":" We open at 9. "},"prompt_eval_count":42,"eval_count":7}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", "llama3.1:8b", nil)
	completion, err := client.Complete(context.Background(), []domain.ChatMessage{
		{Role: "system", Content: "be nice"},
		{Role: "user", Content: "hours?"},
	}, domain.CompletionParams{Temperature: 0.3, MaxTokens: 500})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if completion.Text != "We open at 9." || completion.InputTokens != 42 || completion.OutputTokens != 7 {
		t.Fatalf("unexpected completion: %+v", completion)
	}
	if captured.Model != "llama3.1:8b" || captured.Stream || len(captured.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if captured.Options.Temperature != 0.3 || captured.Options.NumPredict != 500 {
		t.Fatalf("unexpected options: %+v", captured.Options)
	}
}

func TestCompleteIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "gen", nil)
	_, err := client.Complete(context.Background(), nil, domain.CompletionParams{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be temporary, got %v", err)
	}
}

func TestCompleteClientErrorIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(server.URL, "missing", nil).Complete(context.Background(), nil, domain.CompletionParams{})
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestCompleteMapsForbiddenToUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "proxy auth required", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := New(server.URL, "gen", nil).Complete(context.Background(), nil, domain.CompletionParams{})
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.HTTPStatusCode() != http.StatusForbidden {
		t.Fatalf("expected wrapped status error, got %v", err)
	}
}

func TestCompleteOpensBreakerAfterFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.LLMConfig(true, 2, 0.5, time.Minute), nil)
	client := New(server.URL, "gen", exec)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.Complete(ctx, nil, domain.CompletionParams{}); err == nil {
			t.Fatalf("expected failure %d", i)
		}
	}
	_, err := client.Complete(ctx, nil, domain.CompletionParams{})
	if !resilience.IsCircuitOpen(err) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected the open breaker to short-circuit, server saw %d calls", calls)
	}
}

func TestCompleteHonoursContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := New(server.URL, "gen", nil).Complete(ctx, nil, domain.CompletionParams{}); err == nil {
		t.Fatalf("expected deadline error")
	}
}
