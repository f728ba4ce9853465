package domain

import "time"

type Intent string

const (
	IntentChitchat Intent = "chitchat"
	IntentFAQ      Intent = "faq"
	IntentGeneral  Intent = "general"
)

// ConversationTurn is one completed user/assistant exchange.
type ConversationTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

type ValidationVerdict struct {
	IsValid    bool     `json:"is_valid"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues"`
	Feedback   string   `json:"feedback"`
}

// CritiqueOutcome is the validator reply: either a decoded verdict or the raw text
// the model produced when it did not follow the requested structure.
type CritiqueOutcome struct {
	Structured *ValidationVerdict
	Raw        string
}

func (o CritiqueOutcome) IsStructured() bool {
	return o.Structured != nil
}

type QueryMetadata struct {
	NumRetrieved   int  `json:"num_retrieved"`
	OutputFiltered bool `json:"output_filtered"`
	SafetyBlocked  bool `json:"safety_blocked"`
}

type QueryResult struct {
	Answer             string        `json:"answer"`
	Sources            []string      `json:"sources"`
	Intent             Intent        `json:"intent,omitempty"`
	Confidence         float64       `json:"confidence"`
	ValidationPassed   bool          `json:"validation_passed"`
	ValidationFeedback *string       `json:"validation_feedback"`
	Metadata           QueryMetadata `json:"metadata"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionParams struct {
	Temperature float64
	MaxTokens   int
}

type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Event is one entry of the append-only accounting log.
type Event struct {
	ID        string         `json:"id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
}

type SessionSummary struct {
	SessionID         string     `json:"session_id"`
	TotalInteractions int        `json:"total_interactions"`
	TotalCost         float64    `json:"total_cost"`
	InputTokens       int        `json:"input_tokens"`
	OutputTokens      int        `json:"output_tokens"`
	SessionStart      *time.Time `json:"session_start"`
	SessionEnd        *time.Time `json:"session_end"`
}
