package cli

import (
	"github.com/spf13/cobra"

	"github.com/kirillkom/dataroom-assistant/internal/adapters/mcp"
)

var mcpFiles []string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server over stdio. The server owns one
in-memory session; files passed with --file are ingested before it starts,
and more can be added through the ingest_document tool.

Example client configuration:
  {
    "mcpServers": {
      "dataroom": {
        "command": "/path/to/dataroom",
        "args": ["mcp", "serve", "--file", "/data/ppa.pdf"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringArrayVarP(&mcpFiles, "file", "f", nil, "document to ingest before serving (repeatable)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	app, sessionID, err := openApp(cmd, mcpFiles)
	if err != nil {
		return err
	}
	defer app.Close()

	server, err := mcp.NewServer(&mcp.Ports{
		SessionID: sessionID,
		Ingest:    app.Ingest,
		Catalog:   app.Ingest,
		QA:        app.QA,
	})
	if err != nil {
		return err
	}
	return server.Run(cmd.Context())
}
