package tenet

import (
	"github.com/spf13/cobra"

	"github.com/tenetdb/tenet/pkg/mcpserver"
	"github.com/tenetdb/tenet/pkg/server"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server on stdin/stdout. Agents connect
it as a tool server to remember and recall facts.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	client, _, logger, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	srv := mcpserver.New(client, server.Version, logger)
	return srv.ServeStdio()
}
