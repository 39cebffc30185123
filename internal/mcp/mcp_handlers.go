package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/smellscan/core"
	"github.com/huangsam/smellscan/core/classify"
	"github.com/huangsam/smellscan/internal/changeset"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/internal/outwriter"
	"github.com/huangsam/smellscan/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// classifiedPath is one entry of the classify_paths result.
type classifiedPath struct {
	Path  string       `json:"path"`
	Layer schema.Layer `json:"layer"`
	Test  bool         `json:"test,omitempty"`
}

func (h *toolHandler) handleScanChangeSet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.ChangeSetPath = request.GetString("changeset_path", "")
	cfg.DiffPath = request.GetString("diff_path", "")
	cfg.TicketPath = request.GetString("ticket_path", "")
	cfg.CoverageFeedPath = request.GetString("coverage_feed", "")
	cfg.UnusedFeedPath = request.GetString("unused_feed", "")

	skip, err := contract.ParseSkipList(request.GetString("skip", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid scan parameters: %v", err)), nil
	}
	if len(skip) > 0 {
		cfg.Skip = skip
	}

	cs, err := loadChangeSet(ctx, cfg, request.GetString("changeset_json", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid ChangeSet: %v", err)), nil
	}
	feeds, err := changeset.LoadFeeds(cfg.UnusedFeedPath, cfg.CoverageFeedPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid feed: %v", err)), nil
	}

	scanCtx := core.WithSuppressHeader(ctx)
	if !request.GetBool("record_history", false) {
		scanCtx = core.WithSkipHistory(scanCtx)
	}
	report, err := core.Scan(scanCtx, cfg, h.mgr, cs, feeds)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// loadChangeSet prefers the file sources of cfg and falls back to an inline descriptor.
func loadChangeSet(ctx context.Context, cfg *contract.Config, inline string) (schema.ChangeSet, error) {
	if cfg.ChangeSetPath != "" || cfg.DiffPath != "" || strings.TrimSpace(inline) == "" {
		return changeset.Load(ctx, cfg, contract.NewLocalGitClient())
	}
	cs, err := changeset.ParseDescriptor([]byte(inline), changeset.JSONFormat)
	if err != nil {
		return cs, err
	}
	if cs.ID == "" {
		cs.ID = "inline"
	}
	if err := changeset.Normalize(&cs); err != nil {
		return cs, err
	}
	return cs, nil
}

func (h *toolHandler) handleListSmells(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	model := outwriter.BuildSmellsRenderModel(h.baseCfg)
	jsonData, _ := json.MarshalIndent(model, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleClassifyPaths(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("paths", "")
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' })

	classifier := classify.New(h.baseCfg.Rules)
	var out []classifiedPath
	for _, p := range fields {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, classifiedPath{
			Path:  p,
			Layer: classifier.Classify(p),
			Test:  h.baseCfg.Rules.IsTestFile(p),
		})
	}
	if len(out) == 0 {
		return mcp.NewToolResultError("paths is required"), nil
	}

	jsonData, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
