package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/support-agent/internal/core/ports"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the agent interactively",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return runChat(cmd.Context(), os.Stdin, cmd.OutOrStdout(), app.Agent)
	},
}

// runChat reads one query per line until quit, exit, end of input or
// context cancellation. The session summary is printed on the way out.
func runChat(ctx context.Context, in io.Reader, out io.Writer, agent ports.QueryProcessor) error {
	fmt.Fprintf(out, "\n%s\nCUSTOMER SERVICE AGENT - INTERACTIVE MODE\n%s\n", wideRule, wideRule)
	fmt.Fprintln(out, "\nCommands:")
	fmt.Fprintln(out, "  'quit' or 'exit' - Exit the program")
	fmt.Fprintln(out, "  'reset' - Reset conversation history")
	fmt.Fprintln(out, "  'summary' - Show session summary")
	fmt.Fprintf(out, "%s\n", wideRule)

	// Scan blocks, so lines are read on a separate goroutine to let a signal
	// end the session without waiting for the next line.
	scanner := bufio.NewScanner(in)
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "\nYou: ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\n\nInterrupted by user.")
			printSummary(out, agent.SessionSummary())
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			printSummary(out, agent.SessionSummary())
			return scanner.Err()
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		switch strings.ToLower(query) {
		case "quit", "exit":
			fmt.Fprintln(out, "\nThank you for using Customer Service Agent!")
			printSummary(out, agent.SessionSummary())
			return nil
		case "reset":
			agent.ResetConversation()
			fmt.Fprintln(out, "Conversation history cleared.")
			continue
		case "summary":
			printSummary(out, agent.SessionSummary())
			continue
		}

		result := agent.ProcessQuery(ctx, query)
		fmt.Fprintf(out, "\nAgent: %s\n", result.Answer)
		if len(result.Sources) > 0 {
			fmt.Fprintf(out, "\n[Sources: %s]\n", strings.Join(result.Sources, ", "))
		}
	}
}
