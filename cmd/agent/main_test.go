package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

type agentFake struct {
	queries []string
	resets  int
}

func (f *agentFake) ProcessQuery(_ context.Context, query string) domain.QueryResult {
	f.queries = append(f.queries, query)
	feedback := "missing citation"
	return domain.QueryResult{
		Answer:             "answer: " + query,
		Sources:            []string{"FAQ-1", "FAQ-5"},
		Intent:             domain.IntentFAQ,
		Confidence:         0.8,
		ValidationFeedback: &feedback,
		Metadata:           domain.QueryMetadata{NumRetrieved: 2},
	}
}

func (f *agentFake) ResetConversation()                 { f.resets++ }
func (f *agentFake) History() []domain.ConversationTurn { return nil }
func (f *agentFake) SessionSummary() domain.SessionSummary {
	return domain.SessionSummary{SessionID: "s-1", TotalInteractions: len(f.queries), TotalCost: 0.00421}
}

func TestRunChatHandlesCommands(t *testing.T) {
	agent := &agentFake{}
	in := strings.NewReader("What are your business hours?\n\nreset\nsummary\nquit\nnever read\n")
	var out bytes.Buffer

	if err := runChat(context.Background(), in, &out, agent); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if len(agent.queries) != 1 || agent.resets != 1 {
		t.Fatalf("unexpected calls: queries=%v resets=%d", agent.queries, agent.resets)
	}
	text := out.String()
	for _, want := range []string{
		"Agent: answer: What are your business hours?",
		"[Sources: FAQ-1, FAQ-5]",
		"Thank you for using Customer Service Agent!",
		"Total Cost: $0.0042",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestRunChatStopsAtEndOfInput(t *testing.T) {
	agent := &agentFake{}
	var out bytes.Buffer
	if err := runChat(context.Background(), strings.NewReader("Hello"), &out, agent); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if len(agent.queries) != 1 || !strings.Contains(out.String(), "SESSION SUMMARY") {
		t.Fatalf("expected one query and a summary, got %v", agent.queries)
	}
}

func TestRunDemoAsksEveryQuery(t *testing.T) {
	agent := &agentFake{}
	var out bytes.Buffer
	runDemo(context.Background(), &out, nil, agent)

	if len(agent.queries) != len(demoQueries) || agent.queries[4] != "Do you ship to Mars?" {
		t.Fatalf("unexpected demo queries: %v", agent.queries)
	}
	text := out.String()
	if !strings.Contains(text, "Intent: faq (confidence: 0.80)") || !strings.Contains(text, "Validation: FAILED") {
		t.Fatalf("unexpected demo output:\n%s", text)
	}
	if !strings.Contains(text, "Validation Feedback: missing citation") {
		t.Fatalf("expected validation feedback in output")
	}
}

func TestRunChatStopsOnCancellation(t *testing.T) {
	agent := &agentFake{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking, writer := io.Pipe()
	defer writer.Close()
	var out bytes.Buffer
	if err := runChat(ctx, blocking, &out, agent); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if !strings.Contains(out.String(), "Interrupted by user.") {
		t.Fatalf("expected interruption notice:\n%s", out.String())
	}
}
