package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/morebtcg/bcos-framework/pkg/storage"
)

// ToolDeps holds the shared dependency every tool handler needs.
type ToolDeps struct {
	DB *storage.StateStorage
}

// HandleListTables lists the keys recorded in s_tables.
func (d *ToolDeps) HandleListTables(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys, err := d.DB.GetPrimaryKeys(storage.SysTableName, storage.NewCondition())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list_tables failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("Tables:\n")
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("- %s\n", k))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleGetRow fetches a single row.
func (d *ToolDeps) HandleGetRow(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table := request.GetString("table", "")
	key := request.GetString("key", "")
	if table == "" || key == "" {
		return mcp.NewToolResultError("table and key parameters are required"), nil
	}

	entry, err := d.DB.GetRow(table, key)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get_row failed: %v", err)), nil
	}
	if entry == nil {
		return mcp.NewToolResultText(fmt.Sprintf("%s/%s: not found", table, key)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s/%s: version=%d num=%d dirty=%t\n", table, key, entry.Version(), entry.Num(), entry.Dirty())
	for i, f := range entry.Fields() {
		fmt.Fprintf(&sb, "  [%d] %q\n", i, f)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleTableHashes computes and reports every local table's digest.
func (d *ToolDeps) HandleTableHashes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hashes, err := d.DB.TableHashes()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("table_hashes failed: %v", err)), nil
	}

	var sb strings.Builder
	for _, h := range hashes {
		fmt.Fprintf(&sb, "%s: %x\n", h.Table, h.Digest)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
