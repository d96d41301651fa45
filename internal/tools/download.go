package tools

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/docsmith/internal/editor"
)

// DownloadTool handles the download_document MCP tool.
type DownloadTool struct {
	editor *editor.Editor
}

// NewDownloadTool creates a DownloadTool.
func NewDownloadTool(e *editor.Editor) *DownloadTool {
	return &DownloadTool{editor: e}
}

// Definition returns the MCP tool definition for download_document.
func (t *DownloadTool) Definition() mcp.Tool {
	return mcp.NewTool("download_document",
		mcp.WithDescription(
			"Fetch a modified document produced by apply_changes. "+
				"Returns the file as an embedded base64 resource.",
		),
		mcp.WithString("handle",
			mcp.Required(),
			mcp.Description("download_handle returned by apply_changes"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Handle processes the download_document tool call.
func (t *DownloadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle := req.GetString("handle", "")
	a, err := t.editor.Download(ctx, handle)
	if err != nil {
		return errorResult(err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("%s (%d bytes, sha256 %s)", a.Filename, a.Size, a.SHA256)),
			mcp.NewEmbeddedResource(mcp.BlobResourceContents{
				URI:      t.editor.DownloadURL(a.Name),
				MIMEType: a.MIMEType,
				Blob:     base64.StdEncoding.EncodeToString(a.Content),
			}),
		},
	}, nil
}
