package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

func TestBuildGenerationMessagesGrounded(t *testing.T) {
	msgs := buildGenerationMessages("Where is my order?", domain.IntentFAQ, "CTX", nil)
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("unexpected message shape: %+v", msgs)
	}
	want := "User Query: Where is my order?\n\nCTX\n\nPlease answer the user's query based on the knowledge base provided above.\nRemember to cite sources and be honest about limitations."
	if msgs[1].Content != want {
		t.Fatalf("unexpected user prompt:\n%q\nwant:\n%q", msgs[1].Content, want)
	}
	if !strings.Contains(msgs[0].Content, "[Source: FAQ-X]") {
		t.Fatalf("grounded persona must teach the citation format")
	}
}

func TestBuildGenerationMessagesPrependsHistory(t *testing.T) {
	history := []domain.ConversationTurn{{User: "hi", Assistant: "hello"}}
	msgs := buildGenerationMessages("thanks", domain.IntentChitchat, "", history)
	want := "\n\nRecent conversation history:\nUser: hi\nAssistant: hello\n\nthanks"
	if msgs[1].Content != want {
		t.Fatalf("unexpected user prompt %q", msgs[1].Content)
	}
}
