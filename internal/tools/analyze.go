package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/docsmith/internal/editor"
)

// AnalyzeTool handles the analyze_and_suggest MCP tool.
type AnalyzeTool struct {
	editor *editor.Editor
}

// NewAnalyzeTool creates an AnalyzeTool.
func NewAnalyzeTool(e *editor.Editor) *AnalyzeTool {
	return &AnalyzeTool{editor: e}
}

// Definition returns the MCP tool definition for analyze_and_suggest.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_and_suggest",
		mcp.WithDescription(
			"Analyze a document and suggest edits based on the user's request. "+
				"Every call replaces the previous suggestions: ids from earlier calls become stale. "+
				"Supported requests: "+strings.Join(t.editor.Rules(), ", ")+
				" (e.g. 'make it more formal', 'make it more concise').",
		),
		mcp.WithString("doc_id",
			mcp.Required(),
			mcp.Description("Document ID from upload_document"),
		),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("User's edit request (e.g., 'make it more formal')"),
		),
	)
}

// Handle processes the analyze_and_suggest tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.editor.Analyze(ctx, req.GetString("doc_id", ""), req.GetString("request", ""))
	if err != nil {
		return errorResult(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d suggestions for: %s", len(res.Suggestions), res.Request)
	for _, s := range res.Suggestions {
		fmt.Fprintf(&b, "\n- [%s] paragraph %d: %q -> %q (%s)", s.ID, s.UnitIndex, s.Original, s.Proposed, s.Rationale)
	}
	return mcp.NewToolResultStructured(res, b.String()), nil
}
