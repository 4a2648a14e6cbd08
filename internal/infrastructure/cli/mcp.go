package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	inframcp "github.com/harvestpath/harvestpath/internal/infrastructure/mcp"
	"github.com/spf13/cobra"
)

var (
	mcpTransport string
	mcpAddr      string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the HarvestPath MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("HARVESTPATH_SKIP_MCP_START") == "true" {
			return nil
		}
		root, err := getWorkspaceRoot()
		if err != nil {
			return err
		}
		server, err := inframcp.NewServer(cmd.Context(), root, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to start mcp server: %w", err)
		}
		switch strings.ToLower(mcpTransport) {
		case "stdio", "":
			return server.ServeStdio(cmd.Context())
		case "http":
			return server.ServeHTTP(cmd.Context(), mcpAddr)
		default:
			return fmt.Errorf("unsupported transport: %s", mcpTransport)
		}
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport to use (stdio, http)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8080", "Address for the http transport")
	RootCmd.AddCommand(mcpCmd)
}
