package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MessageInputSafe      = "Input is safe"
	MessageInputTooLong   = "Input too long"
	MessagePromptInjected = "Potential prompt injection detected"

	filteredMarker = "[FILTERED]"
	emailMarker    = "[EMAIL]"
	phoneMarker    = "[PHONE]"
)

var (
	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ignore\s+(?:all\s+|the\s+)?(?:previous|above|prior|all)\s+instructions`),
		regexp.MustCompile(`(?i)you\s+are\s+now`),
		regexp.MustCompile(`(?i)forget\s+everything`),
		regexp.MustCompile(`(?i)new\s+instructions`),
		regexp.MustCompile(`(?i)system\s*:\s*`),
		regexp.MustCompile(`(?i)<\|.*?\|>`),
	}
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
)

type SafetyOptions struct {
	MaxInputLength int
	SensitiveWords []string
}

type sensitiveWord struct {
	word    string
	lower   string
	pattern *regexp.Regexp
}

// SafetyFilter enforces the input and output content policy.
type SafetyFilter struct {
	maxInputLength int
	words          []sensitiveWord
}

func NewSafetyFilter(opts SafetyOptions) *SafetyFilter {
	words := make([]sensitiveWord, 0, len(opts.SensitiveWords))
	for _, w := range opts.SensitiveWords {
		if strings.TrimSpace(w) == "" {
			continue
		}
		words = append(words, sensitiveWord{
			word:    w,
			lower:   strings.ToLower(w),
			pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(w)),
		})
	}
	return &SafetyFilter{maxInputLength: opts.MaxInputLength, words: words}
}

// CheckInput blocks overlong input and prompt-injection phrasing. Sensitive words
// produce a warning message but never block.
func (f *SafetyFilter) CheckInput(text string) (bool, string) {
	if f.maxInputLength > 0 && utf8.RuneCountInString(text) > f.maxInputLength {
		return false, MessageInputTooLong
	}
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(text) {
			return false, MessagePromptInjected
		}
	}
	lower := strings.ToLower(text)
	for _, w := range f.words {
		if strings.Contains(lower, w.lower) {
			return true, fmt.Sprintf("Warning: sensitive word '%s' detected in input", w.word)
		}
	}
	return true, MessageInputSafe
}

// SanitizeInput drops NUL bytes and collapses whitespace runs.
func (f *SafetyFilter) SanitizeInput(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.Join(strings.Fields(text), " ")
}

// FilterOutput redacts sensitive words, e-mail addresses and phone numbers.
func (f *SafetyFilter) FilterOutput(text string) (string, bool) {
	filtered := false
	for _, w := range f.words {
		if w.pattern.MatchString(text) {
			text = w.pattern.ReplaceAllLiteralString(text, filteredMarker)
			filtered = true
		}
	}
	if emailPattern.MatchString(text) {
		text = emailPattern.ReplaceAllLiteralString(text, emailMarker)
		filtered = true
	}
	if phonePattern.MatchString(text) {
		text = phonePattern.ReplaceAllLiteralString(text, phoneMarker)
		filtered = true
	}
	return text, filtered
}
