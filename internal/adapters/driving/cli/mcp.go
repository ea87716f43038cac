package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the ask, index_document, status and remove_source tools
and the docqa://status and docqa://sources resources.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to serve the streamable HTTP transport instead, for the MCP
Inspector or remote clients. It binds to --host, 127.0.0.1 by default.

Examples:
  # Stdio mode (default, for Claude Desktop)
  docqa mcp serve

  # HTTP mode on all interfaces
  docqa mcp serve --port 8080 --host 0.0.0.0

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "docqa": {
        "command": "/path/to/docqa",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().String("host", "127.0.0.1", "HTTP bind address")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return fmt.Errorf("getting host flag: %w", err)
	}

	ports := &mcp.Ports{
		Answer: answerService,
		Index:  indexService,
		Status: statusService,
	}

	server, err := mcp.NewServer(ports, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	if port > 0 {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		cmd.Printf("MCP server listening on http://%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
