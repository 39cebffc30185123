// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the smellscan MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Smellscan Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: scan_changeset ---
	s.AddTool(mcp.NewTool("scan_changeset",
		mcp.WithDescription("Scan a ChangeSet (a ticket's file changes) for layered-architecture code smells and return the prioritized report."),
		mcp.WithString("changeset_path", mcp.Description("Path to a ChangeSet descriptor (JSON or YAML).")),
		mcp.WithString("changeset_json", mcp.Description("Inline ChangeSet descriptor as JSON. Used when changeset_path is empty.")),
		mcp.WithString("diff_path", mcp.Description("Path to a unified diff. Used when no descriptor is given.")),
		mcp.WithString("ticket_path", mcp.Description("Ticket YAML merged onto a diff-based ChangeSet.")),
		mcp.WithString("skip", mcp.Description("Comma-separated detectors to disable (names or codes such as B4).")),
		mcp.WithString("coverage_feed", mcp.Description("Path to a coverage feed.")),
		mcp.WithString("unused_feed", mcp.Description("Path to an unused-symbol feed.")),
		mcp.WithBoolean("record_history", mcp.Description("Record findings in the history store. Defaults to false.")),
	), h.handleScanChangeSet)

	// --- 2. Tool: list_smells ---
	s.AddTool(mcp.NewTool("list_smells",
		mcp.WithDescription("List every smell type with its trigger under the active thresholds and its recommended refactor pattern."),
	), h.handleListSmells)

	// --- 3. Tool: classify_paths ---
	s.AddTool(mcp.NewTool("classify_paths",
		mcp.WithDescription("Map file paths to architecture layers with the active layer rules."),
		mcp.WithString("paths", mcp.Description("Comma or newline separated file paths."), mcp.Required()),
	), h.handleClassifyPaths)

	return s
}

// StartMCPServer starts the smellscan MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
