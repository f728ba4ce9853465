package usecase

import (
	"strings"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

const (
	defaultMaxChitchatWords = 10
	generalConfidence       = 0.5
)

type IntentOptions struct {
	ChitchatKeywords       []string
	FAQKeywords            []string
	FAQConfidenceThreshold float64
	MaxChitchatWords       int
}

// IntentClassifier labels queries by keyword substring matching. It holds no
// mutable state.
type IntentClassifier struct {
	chitchat         []string
	faq              []string
	faqThreshold     float64
	maxChitchatWords int
}

func NewIntentClassifier(opts IntentOptions) *IntentClassifier {
	maxWords := opts.MaxChitchatWords
	if maxWords <= 0 {
		maxWords = defaultMaxChitchatWords
	}
	return &IntentClassifier{
		chitchat:         lowerAll(opts.ChitchatKeywords),
		faq:              lowerAll(opts.FAQKeywords),
		faqThreshold:     opts.FAQConfidenceThreshold,
		maxChitchatWords: maxWords,
	}
}

// Classify returns the first matching intent in priority order: chitchat, faq, general.
// Keywords match as plain substrings, so "shipping" also counts as the chitchat
// keyword "hi".
func (c *IntentClassifier) Classify(text string) (domain.Intent, float64) {
	lower := strings.ToLower(text)

	chitchatMatches := countMatches(lower, c.chitchat)
	if chitchatMatches > 0 && len(strings.Fields(text)) <= c.maxChitchatWords {
		return domain.IntentChitchat, min(0.9, 0.6+0.1*float64(chitchatMatches))
	}

	faqMatches := countMatches(lower, c.faq)
	if faqMatches > 0 || strings.Contains(text, "?") {
		return domain.IntentFAQ, min(0.95, c.faqThreshold+0.1*float64(faqMatches))
	}

	return domain.IntentGeneral, generalConfidence
}

// ShouldUseRAG is false only for chitchat; uncertain classifications still retrieve.
func (c *IntentClassifier) ShouldUseRAG(intent domain.Intent, _ float64) bool {
	return intent != domain.IntentChitchat
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
