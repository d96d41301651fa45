package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/docsmith/internal/docerr"
	"github.com/HendryAvila/docsmith/internal/editor"
	"github.com/HendryAvila/docsmith/internal/ingress"
)

// UploadTool handles the upload_document MCP tool.
type UploadTool struct {
	editor *editor.Editor
}

// NewUploadTool creates an UploadTool.
func NewUploadTool(e *editor.Editor) *UploadTool {
	return &UploadTool{editor: e}
}

// Definition returns the MCP tool definition for upload_document.
func (t *UploadTool) Definition() mcp.Tool {
	return mcp.NewTool("upload_document",
		mcp.WithDescription(
			"Upload a Word (.docx) or plain-text document for editing. "+
				"Send the bytes base64-encoded in 'content', or pass a 'url' to fetch it. "+
				"Returns the doc_id used by every other tool.",
		),
		mcp.WithString("filename",
			mcp.Description("Name of the file, e.g. 'proposal.docx'. Required with 'content'; overrides the fetched name with 'url'."),
		),
		mcp.WithString("content",
			mcp.Description("Base64 encoded document content"),
		),
		mcp.WithString("url",
			mcp.Description("http(s) URL to fetch the document from instead of 'content'"),
		),
	)
}

// Handle processes the upload_document tool call.
func (t *UploadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename := strings.TrimSpace(req.GetString("filename", ""))
	content := req.GetString("content", "")
	url := strings.TrimSpace(req.GetString("url", ""))

	var (
		res *editor.UploadResult
		err error
	)
	switch {
	case content != "" && url != "":
		return errorResult(docerr.Invalid("pass either 'content' or 'url', not both"))
	case url != "":
		res, err = t.editor.UploadURL(ctx, url, filename)
	case content != "":
		if filename == "" {
			return errorResult(docerr.Invalid("'filename' is required with 'content'"))
		}
		raw, decErr := ingress.DecodeBase64(content, t.editor.MaxUploadBytes())
		if decErr != nil {
			return errorResult(decErr)
		}
		res, err = t.editor.Upload(ctx, filename, raw)
	default:
		return errorResult(docerr.Invalid("'content' or 'url' is required"))
	}
	if err != nil {
		return errorResult(err)
	}

	m := res.Metadata
	text := fmt.Sprintf("Uploaded document: %s\nDocument ID: %s\nWord count: %d\nParagraphs: %d",
		m.Filename, res.DocumentID, m.WordCount, m.ParagraphCount)
	return mcp.NewToolResultStructured(res, text), nil
}
