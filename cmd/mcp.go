package cmd

import (
	"github.com/huangsam/smellscan/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:     "mcp",
	Short:   "Start the smellscan MCP server",
	Long:    `Launch an MCP server on stdio that lets AI agents scan ChangeSets, list smells and classify paths.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
