// Package server wires all components and creates the MCP server instance.
//
// This is the composition root: it creates the artifact store, metrics,
// fetcher and editor, and registers the tools, prompts and resources that
// front them. No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/HendryAvila/docsmith/internal/artifacts"
	"github.com/HendryAvila/docsmith/internal/config"
	"github.com/HendryAvila/docsmith/internal/editor"
	"github.com/HendryAvila/docsmith/internal/ingress"
	"github.com/HendryAvila/docsmith/internal/observability"
	"github.com/HendryAvila/docsmith/internal/prompts"
	"github.com/HendryAvila/docsmith/internal/resources"
	"github.com/HendryAvila/docsmith/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Components are the wired pieces a transport needs.
type Components struct {
	MCP       *server.MCPServer
	Editor    *editor.Editor
	Artifacts *artifacts.Store
	// Metrics is nil when New was given no registerer.
	Metrics *observability.Metrics
}

// New creates the editor and an MCP server with every tool, prompt and
// resource registered. A nil reg disables metrics.
//
// The returned cleanup function closes the artifact store and must be
// called on shutdown. It is always non-nil.
func New(cfg config.Config, reg prometheus.Registerer) (*Components, func(), error) {
	// --- Create shared dependencies ---

	store, err := artifacts.New(artifacts.Config{
		DataDir:   cfg.DataDir,
		Retention: cfg.ArtifactRetention.Std(),
	})
	if err != nil {
		return nil, noop, fmt.Errorf("opening artifact store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Warn("artifact store close", "error", err)
		}
	}

	var metrics *observability.Metrics
	if reg != nil {
		metrics = observability.New(reg)
	}

	fetcher := ingress.NewFetcher(ingress.Config{
		Timeout:       cfg.FetchTimeout.Std(),
		RatePerMinute: cfg.FetchRatePerMinute,
		MaxBytes:      cfg.MaxUploadBytes,
	}, nil)

	ed := editor.New(editor.Config{
		LongPassageWords: cfg.LongPassageWords,
		ShortenKeepWords: cfg.ShortenKeepWords,
		LockWait:         cfg.LockWait.Std(),
		MaxUploadBytes:   cfg.MaxUploadBytes,
		PublicBaseURL:    cfg.PublicBaseURL,
	}, store, editor.WithMetrics(metrics), editor.WithFetcher(fetcher))

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"docsmith",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	uploadTool := tools.NewUploadTool(ed)
	s.AddTool(uploadTool.Definition(), uploadTool.Handle)

	analyzeTool := tools.NewAnalyzeTool(ed)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	applyTool := tools.NewApplyTool(ed)
	s.AddTool(applyTool.Definition(), applyTool.Handle)

	downloadTool := tools.NewDownloadTool(ed)
	s.AddTool(downloadTool.Definition(), downloadTool.Handle)

	getTool := tools.NewGetDocumentTool(ed)
	s.AddTool(getTool.Definition(), getTool.Handle)

	discardTool := tools.NewDiscardDocumentTool(ed)
	s.AddTool(discardTool.Definition(), discardTool.Handle)

	// --- Register prompts ---

	editPrompt := prompts.NewEditPrompt()
	s.AddPrompt(editPrompt.Definition(), editPrompt.Handle)

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	// --- Register resources ---

	h := resources.NewHandler(ed)
	s.AddResource(h.WidgetResource(), h.HandleWidget)
	s.AddResourceTemplate(h.DocumentTemplate(), h.HandleDocument)
	s.AddResourceTemplate(h.ArtifactTemplate(), h.HandleArtifact)

	return &Components{MCP: s, Editor: ed, Artifacts: store, Metrics: metrics}, cleanup, nil
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

// serverInstructions tells the model how to drive the editing flow.
func serverInstructions() string {
	return `You have access to docsmith, a document editing MCP server for Word (.docx) and plain-text files.

## Flow
1. upload_document: send the file base64-encoded in 'content' with its 'filename', or pass a 'url'. Keep the returned doc_id.
2. analyze_and_suggest: pass doc_id and the user's request ("make it more formal", "make it more concise").
   Each suggestion has an id, the paragraph it touches, the original text, the suggested text and a reason.
3. Show the suggestions to the user and let them choose. Never apply suggestions the user did not accept.
4. apply_changes: pass doc_id and the accepted suggestion_ids. The result lists the changed paragraphs,
   any skipped suggestions (conflicts) and a download_url.
5. download_document: fetch the modified file by its download_handle when the user wants the bytes.

## Rules
- Every analyze_and_suggest call replaces the previous suggestions. Ids from older calls are stale:
  apply_changes rejects them and you must analyze again.
- Suggestions that overlap one another, or overlap text already changed, are skipped and reported as conflicts.
  Applying the rest is not an error.
- A "busy" error means another edit of the same document is in progress. Retry shortly.
- get_document shows the current text and downloads. discard_document forgets a document when the user is done.

Errors start with a code in brackets: [not_found], [stale_suggestion], [empty_selection], [busy],
[decode_error], [invalid_argument].`
}
