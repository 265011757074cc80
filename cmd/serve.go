package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/surajshivkumar/ConvoLens/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the call archive question router and browsing tools to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Stdout carries the MCP protocol.
		cfg.Logging.Format = "json"

		a, err := newApp(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "convolens MCP server started on stdio (database=%s, retrieval=%s)\n",
			a.db.Dialect(), cfg.Retrieval.Backend)

		srv := mcpserver.NewServer(a.router, a.archive)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
