package main

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/support-agent/internal/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the agent as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		app.Logger.Info("mcp server starting on stdio")
		return mcpadapter.NewServer(app.Agent, app.Knowledge, version, app.Logger).ServeStdio()
	},
}
