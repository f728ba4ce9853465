package domain

import "fmt"

// EvidenceItem is a question/answer record owned by the evidence source.
type EvidenceItem struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
	Verified bool   `json:"verified"`
}

// SourceRef is the citation token used in prompts and results.
func (e EvidenceItem) SourceRef() string {
	return fmt.Sprintf("FAQ-%d", e.ID)
}

// FAQDraft is an evidence item that has not been assigned an id yet.
type FAQDraft struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
	Verified bool   `json:"verified"`
}

// DefaultFAQs is the built-in evidence set used when no knowledge base can be loaded.
func DefaultFAQs() []EvidenceItem {
	return []EvidenceItem{
		{
			ID:       1,
			Question: "What are your business hours?",
			Answer:   "We are open Monday to Friday, 9 AM to 6 PM (GMT+8).",
			Category: "general",
			Verified: true,
		},
		{
			ID:       2,
			Question: "How do I reset my password?",
			Answer:   "Click 'Forgot Password' on the login page, enter your email, and follow the instructions sent to your inbox.",
			Category: "account",
			Verified: true,
		},
		{
			ID:       3,
			Question: "What payment methods do you accept?",
			Answer:   "We accept credit cards (Visa, MasterCard, AMEX), PayPal, and bank transfers.",
			Category: "payment",
			Verified: true,
		},
		{
			ID:       4,
			Question: "How long does shipping take?",
			Answer:   "Standard shipping takes 3-5 business days. Express shipping takes 1-2 business days.",
			Category: "shipping",
			Verified: true,
		},
		{
			ID:       5,
			Question: "What is your return policy?",
			Answer:   "We accept returns within 30 days of purchase. Items must be unused and in original packaging.",
			Category: "returns",
			Verified: true,
		},
	}
}

// NextFAQID returns max(existing ids)+1, or 1 for an empty set.
func NextFAQID(items []EvidenceItem) int {
	maxID := 0
	for _, item := range items {
		if item.ID > maxID {
			maxID = item.ID
		}
	}
	return maxID + 1
}
