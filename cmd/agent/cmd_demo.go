package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/support-agent/internal/core/ports"
)

var demoPause bool

var demoQueries = []string{
	"Hello! How are you?",
	"What are your business hours?",
	"How do I reset my password?",
	"What payment methods do you accept?",
	"Do you ship to Mars?",
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the predefined demo queries and print the session summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		var pause io.Reader
		if demoPause {
			pause = os.Stdin
		}
		runDemo(cmd.Context(), cmd.OutOrStdout(), pause, app.Agent)
		return nil
	},
}

func init() {
	demoCmd.Flags().BoolVar(&demoPause, "pause", false, "wait for Enter between queries")
}

// runDemo answers every demo query. When pause is non-nil a line is read from
// it between queries.
func runDemo(ctx context.Context, out io.Writer, pause io.Reader, agent ports.QueryProcessor) {
	fmt.Fprintf(out, "\n%s\nCUSTOMER SERVICE AGENT - DEMO MODE\n%s\n", wideRule, wideRule)

	var scanner *bufio.Scanner
	if pause != nil {
		scanner = bufio.NewScanner(pause)
	}
	for _, query := range demoQueries {
		fmt.Fprintf(out, "\nYou: %s\n", query)
		printResult(out, agent.ProcessQuery(ctx, query))
		if scanner != nil {
			fmt.Fprint(out, "Press Enter to continue...")
			scanner.Scan()
		}
	}
	printSummary(out, agent.SessionSummary())
}
