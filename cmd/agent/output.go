package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

var (
	wideRule   = strings.Repeat("=", 60)
	narrowRule = strings.Repeat("=", 50)
)

func printResult(w io.Writer, result domain.QueryResult) {
	fmt.Fprintf(w, "\n%s\nAGENT RESPONSE\n%s\n", wideRule, wideRule)
	fmt.Fprintf(w, "\nAnswer:\n%s\n\n", result.Answer)

	if len(result.Sources) > 0 {
		fmt.Fprintf(w, "Sources: %s\n", strings.Join(result.Sources, ", "))
	}

	fmt.Fprintf(w, "\nIntent: %s (confidence: %.2f)\n", result.Intent, result.Confidence)
	validation := "FAILED"
	if result.ValidationPassed {
		validation = "PASSED"
	}
	fmt.Fprintf(w, "Validation: %s\n", validation)
	if result.ValidationFeedback != nil && *result.ValidationFeedback != "" {
		fmt.Fprintf(w, "Validation Feedback: %s\n", *result.ValidationFeedback)
	}

	fmt.Fprintln(w, "\nMetadata:")
	fmt.Fprintf(w, "  num_retrieved: %d\n", result.Metadata.NumRetrieved)
	fmt.Fprintf(w, "  output_filtered: %t\n", result.Metadata.OutputFiltered)
	if result.Metadata.SafetyBlocked {
		fmt.Fprintf(w, "  safety_blocked: %t\n", result.Metadata.SafetyBlocked)
	}
	fmt.Fprintf(w, "%s\n\n", wideRule)
}

func printSummary(w io.Writer, summary domain.SessionSummary) {
	fmt.Fprintf(w, "\n%s\nSESSION SUMMARY\n%s\n", narrowRule, narrowRule)
	fmt.Fprintf(w, "Session: %s\n", summary.SessionID)
	fmt.Fprintf(w, "Total Interactions: %d\n", summary.TotalInteractions)
	fmt.Fprintf(w, "Total Cost: $%.4f\n", summary.TotalCost)
	fmt.Fprintf(w, "Input Tokens: %d\n", summary.InputTokens)
	fmt.Fprintf(w, "Output Tokens: %d\n", summary.OutputTokens)
	fmt.Fprintf(w, "%s\n\n", narrowRule)
}
