package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

const (
	roleSystem = "system"
	roleUser   = "user"

	historyTurnsInPrompt = 3

	chitchatSystemPrompt = "You are a friendly customer service assistant. Respond warmly to greetings and casual conversation."

	groundedSystemPrompt = `You are a helpful customer service assistant.
Use the provided knowledge base to answer questions accurately.
Always cite your sources using [Source: FAQ-X] format.
If information is not in the knowledge base, clearly state that you don't have that information.
Be concise and helpful.`

	validatorSystemPrompt = "You are a validation agent that checks answer accuracy."
	repairSystemPrompt    = "You are a helpful assistant that provides accurate information."
)

// buildGenerationMessages assembles the system/user pair for answer generation.
// Recent history is inlined as text ahead of the user content.
func buildGenerationMessages(query string, intent domain.Intent, evidenceContext string, history []domain.ConversationTurn) []domain.ChatMessage {
	system := groundedSystemPrompt
	user := fmt.Sprintf(`User Query: %s

%s

Please answer the user's query based on the knowledge base provided above.
Remember to cite sources and be honest about limitations.`, query, evidenceContext)
	if intent == domain.IntentChitchat {
		system = chitchatSystemPrompt
		user = query
	}

	if len(history) > 0 {
		start := len(history) - historyTurnsInPrompt
		if start < 0 {
			start = 0
		}
		var b strings.Builder
		b.WriteString("\n\nRecent conversation history:\n")
		for _, turn := range history[start:] {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.User, turn.Assistant)
		}
		b.WriteString("\n")
		b.WriteString(user)
		user = b.String()
	}

	return []domain.ChatMessage{
		{Role: roleSystem, Content: system},
		{Role: roleUser, Content: user},
	}
}

func buildValidationMessages(query, answer, evidenceContext string, sources []string) []domain.ChatMessage {
	referenced := "None"
	if len(sources) > 0 {
		referenced = strings.Join(sources, ", ")
	}
	prompt := fmt.Sprintf(`You are a strict validator agent. Your job is to check if the answer is accurate and grounded in the provided knowledge base.

User Query: %s

Knowledge Base Context:
%s

Proposed Answer:
%s

Sources Referenced: %s

Please validate the answer by checking:
1. Is the answer grounded in the provided knowledge base?
2. Does it contain any information not supported by the sources?
3. Is the answer accurate and not hallucinated?
4. Does it properly address the user's query?

Respond in JSON format:
{
    "is_valid": true/false,
    "confidence": 0.0-1.0,
    "issues": ["list of issues found, if any"],
    "feedback": "brief explanation"
}
`, query, evidenceContext, answer, referenced)

	return []domain.ChatMessage{
		{Role: roleSystem, Content: validatorSystemPrompt},
		{Role: roleUser, Content: prompt},
	}
}

func buildRepairMessages(query, answer, feedback string) []domain.ChatMessage {
	prompt := fmt.Sprintf(`The following answer was found to have issues:

Original Answer: %s

Validation Feedback: %s

User Query: %s

Please provide an improved answer that addresses the validation issues. If you cannot provide accurate information, clearly state the limitations.
`, answer, feedback, query)

	return []domain.ChatMessage{
		{Role: roleSystem, Content: repairSystemPrompt},
		{Role: roleUser, Content: prompt},
	}
}
