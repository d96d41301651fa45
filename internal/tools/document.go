package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/docsmith/internal/editor"
)

// previewUnits caps how many paragraphs get_document prints as text.
const previewUnits = 20

// GetDocumentTool handles the get_document MCP tool.
type GetDocumentTool struct {
	editor *editor.Editor
}

// NewGetDocumentTool creates a GetDocumentTool.
func NewGetDocumentTool(e *editor.Editor) *GetDocumentTool {
	return &GetDocumentTool{editor: e}
}

// Definition returns the MCP tool definition for get_document.
func (t *GetDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("get_document",
		mcp.WithDescription("Show the current text, revision and produced downloads of an uploaded document."),
		mcp.WithString("doc_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Handle processes the get_document tool call.
func (t *GetDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := t.editor.Describe(ctx, req.GetString("doc_id", ""))
	if err != nil {
		return errorResult(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s), revision %d, %d words in %d paragraphs",
		d.Metadata.Filename, d.Metadata.Format, d.Revision, d.Metadata.WordCount, d.Metadata.ParagraphCount)
	shown := 0
	for i, u := range d.Units {
		if strings.TrimSpace(u) == "" {
			continue
		}
		if shown == previewUnits {
			b.WriteString("\n...")
			break
		}
		fmt.Fprintf(&b, "\n[%d] %s", i, u)
		shown++
	}
	for _, a := range d.Artifacts {
		fmt.Fprintf(&b, "\nDownload: %s", t.editor.DownloadURL(a.Name))
	}
	return mcp.NewToolResultStructured(d, b.String()), nil
}

// ─── DiscardDocumentTool ────────────────────────────────────────────────────

// DiscardDocumentTool handles the discard_document MCP tool.
type DiscardDocumentTool struct {
	editor *editor.Editor
}

// NewDiscardDocumentTool creates a DiscardDocumentTool.
func NewDiscardDocumentTool(e *editor.Editor) *DiscardDocumentTool {
	return &DiscardDocumentTool{editor: e}
}

// Definition returns the MCP tool definition for discard_document.
func (t *DiscardDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("discard_document",
		mcp.WithDescription(
			"Forget an uploaded document and its suggestions. "+
				"Downloads already produced stay available until they expire.",
		),
		mcp.WithString("doc_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
		mcp.WithDestructiveHintAnnotation(true),
	)
}

// Handle processes the discard_document tool call.
func (t *DiscardDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("doc_id", "")
	if err := t.editor.Discard(ctx, id); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Discarded document %s", id)), nil
}
