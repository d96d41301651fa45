package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/docsmith/internal/editor"
)

// ApplyTool handles the apply_changes MCP tool.
type ApplyTool struct {
	editor *editor.Editor
}

// NewApplyTool creates an ApplyTool.
func NewApplyTool(e *editor.Editor) *ApplyTool {
	return &ApplyTool{editor: e}
}

// Definition returns the MCP tool definition for apply_changes.
func (t *ApplyTool) Definition() mcp.Tool {
	return mcp.NewTool("apply_changes",
		mcp.WithDescription(
			"Apply selected suggestions to the document and produce a downloadable copy. "+
				"Suggestions that overlap another edit are reported as conflicts and skipped.",
		),
		mcp.WithString("doc_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
		mcp.WithArray("suggestion_ids",
			mcp.Required(),
			mcp.Description("List of suggestion IDs to apply, from the latest analyze_and_suggest call"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the apply_changes tool call.
func (t *ApplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.editor.Apply(ctx, req.GetString("doc_id", ""), stringsArg(req, "suggestion_ids"))
	if err != nil {
		return errorResult(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Applied %d changes to document", res.AppliedCount)
	if res.DownloadURL != "" {
		fmt.Fprintf(&b, "\nDownload: %s", res.DownloadURL)
	}
	for _, c := range res.Conflicts {
		fmt.Fprintf(&b, "\nSkipped %s: %s", c.SuggestionID, c.Reason)
	}
	b.WriteString(renderChanges(res.Changes))
	return mcp.NewToolResultStructured(res, b.String()), nil
}
