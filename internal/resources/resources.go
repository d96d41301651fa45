// Package resources implements the MCP resources: the document editor
// widget rendered by the host, plus read-only views of documents and the
// artifacts produced from them.
package resources

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/docsmith/internal/editor"
)

const (
	// WidgetURI is the address hosts use to load the editor widget.
	WidgetURI = "ui://widget/document-editor.html"
	// WidgetMIMEType marks the HTML as a host-rendered widget.
	WidgetMIMEType = "text/html+skybridge"

	documentPrefix = "docsmith://documents/"
	artifactPrefix = "docsmith://artifacts/"
)

//go:embed widget.html
var widgetHTML string

// Handler serves the docsmith resources.
type Handler struct {
	editor *editor.Editor
}

// NewHandler creates a resource Handler.
func NewHandler(e *editor.Editor) *Handler {
	return &Handler{editor: e}
}

// WidgetResource returns the MCP resource definition for the editor widget.
func (h *Handler) WidgetResource() mcp.Resource {
	return mcp.NewResource(
		WidgetURI,
		"Document Editor Widget",
		mcp.WithResourceDescription("Interactive review of suggestions: select, apply and download"),
		mcp.WithMIMEType(WidgetMIMEType),
	)
}

// HandleWidget returns the embedded widget HTML.
func (h *Handler) HandleWidget(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: WidgetMIMEType,
			Text:     widgetHTML,
		},
	}, nil
}

// DocumentTemplate returns the resource template for document snapshots.
func (h *Handler) DocumentTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		documentPrefix+"{doc_id}",
		"Document",
		mcp.WithTemplateDescription("Current paragraphs, revision and downloads of an uploaded document"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// HandleDocument returns a document description as JSON.
func (h *Handler) HandleDocument(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := trimPrefix(req.Params.URI, documentPrefix)
	if err != nil {
		return nil, err
	}
	d, err := h.editor.Describe(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// ArtifactTemplate returns the resource template for modified documents.
func (h *Handler) ArtifactTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		artifactPrefix+"{handle}",
		"Modified document",
		mcp.WithTemplateDescription("A modified document produced by apply_changes, addressed by its download handle"),
	)
}

// HandleArtifact returns the artifact bytes as a blob.
func (h *Handler) HandleArtifact(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	handle, err := trimPrefix(req.Params.URI, artifactPrefix)
	if err != nil {
		return nil, err
	}
	a, err := h.editor.Download(ctx, handle)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.BlobResourceContents{
			URI:      req.Params.URI,
			MIMEType: a.MIMEType,
			Blob:     base64.StdEncoding.EncodeToString(a.Content),
		},
	}, nil
}

func trimPrefix(uri, prefix string) (string, error) {
	rest, ok := strings.CutPrefix(uri, prefix)
	if !ok || rest == "" {
		return "", fmt.Errorf("unexpected resource uri %q", uri)
	}
	return url.PathUnescape(rest)
}
