package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp FILE|URL",
	Short: "Serve the engine over MCP on stdio",
	Long: `Loads one document and exposes the engine operations as MCP tools
(advfind_search, advfind_navigate, advfind_export, ...) over stdin/stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	doc, err := loadDocument(ctx, args[0])
	if err != nil {
		return err
	}
	e, done, err := newEngine(doc)
	if err != nil {
		return err
	}
	defer done()

	srv := mcp.NewServer(&mcp.Implementation{Name: "advfind", Version: version}, nil)
	e.RegisterMCP(srv)
	logger.Info("advfind: mcp server on stdio", "source", args[0])
	return srv.Run(ctx, &mcp.StdioTransport{})
}
