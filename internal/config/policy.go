package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy holds the phrase lists that drive safety filtering and intent classification.
type Policy struct {
	SensitiveWords   []string `yaml:"sensitive_words"`
	ChitchatKeywords []string `yaml:"chitchat_keywords"`
	FAQKeywords      []string `yaml:"faq_keywords"`
}

func DefaultSensitiveWords() []string {
	return []string{"password", "credit card", "ssn", "secret"}
}

func DefaultChitchatKeywords() []string {
	return []string{
		"hello", "hi", "hey", "good morning", "good afternoon",
		"how are you", "thanks", "thank you", "bye", "goodbye",
		"nice", "great", "awesome", "cool",
	}
}

func DefaultFAQKeywords() []string {
	return []string{
		"how to", "how do", "what is", "when", "where",
		"price", "cost", "payment", "shipping", "return",
		"account", "password", "login", "register",
		"hours", "contact", "support", "help",
	}
}

func DefaultPolicy() Policy {
	return Policy{
		SensitiveWords:   DefaultSensitiveWords(),
		ChitchatKeywords: DefaultChitchatKeywords(),
		FAQKeywords:      DefaultFAQKeywords(),
	}
}

// LoadPolicy builds the effective policy. Sensitive words come from the plain
// word list at sensitiveWordsFile; a YAML file at policyFile (optional) overrides
// any list it sets.
func LoadPolicy(policyFile, sensitiveWordsFile string) (Policy, error) {
	policy := DefaultPolicy()

	words, err := LoadSensitiveWords(sensitiveWordsFile)
	if err != nil {
		return Policy{}, err
	}
	policy.SensitiveWords = words

	if strings.TrimSpace(policyFile) == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(policyFile)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	var override Policy
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}
	if len(override.SensitiveWords) > 0 {
		policy.SensitiveWords = cleanList(override.SensitiveWords)
	}
	if len(override.ChitchatKeywords) > 0 {
		policy.ChitchatKeywords = cleanList(override.ChitchatKeywords)
	}
	if len(override.FAQKeywords) > 0 {
		policy.FAQKeywords = cleanList(override.FAQKeywords)
	}
	return policy, nil
}

// LoadSensitiveWords reads one word or phrase per line. A missing file yields
// the default list.
func LoadSensitiveWords(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSensitiveWords(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultSensitiveWords(), nil
		}
		return nil, fmt.Errorf("open sensitive words file: %w", err)
	}
	defer f.Close()

	words := make([]string, 0, 16)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if word := strings.TrimSpace(scanner.Text()); word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sensitive words file: %w", err)
	}
	return words, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
