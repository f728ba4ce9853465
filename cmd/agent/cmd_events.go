package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/support-agent/internal/bootstrap"
	"github.com/kirillkom/support-agent/internal/infrastructure/repository/postgres"
)

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Print a session's archived events from Postgres",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		db, err := bootstrap.OpenPostgres(cmd.Context(), cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		events, err := postgres.NewEventRepository(db).ListBySession(cmd.Context(), args[0], eventsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, event := range events {
			data, _ := json.Marshal(event.Data)
			fmt.Fprintf(out, "%s  %-22s %s\n", event.Timestamp.Format(time.RFC3339), event.EventType, data)
		}
		if len(events) == 0 {
			fmt.Fprintf(out, "no events archived for session %s\n", args[0])
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 100, "maximum number of events")
}
