package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatstate/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so assistants can read and
write chat state.

By default, the server communicates over stdio using JSON-RPC. Every tool
takes an actor_id naming the user it acts for.

Use --port to start an HTTP server instead. 'chatstate serve' also mounts
the same server at /mcp next to the HTTP API.

Examples:
  # Stdio mode (default, for desktop assistants)
  chatstate mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  chatstate mcp serve --port 8090`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// mcpPorts adapts the loaded services to the MCP server's ports.
func mcpPorts() *mcp.Ports {
	return &mcp.Ports{
		Chats:       services.Chats,
		Messages:    services.Messages,
		Votes:       services.Votes,
		Documents:   services.Documents,
		Coordinator: services.Coordinator,
	}
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := mcp.NewServer(mcpPorts())
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
