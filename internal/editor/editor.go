// Package editor is the single entry point both transports call. It
// composes the session registry, the suggestion generator, the change
// applicator and the artifact store, and owns the operation semantics
// shared by the MCP tools and the REST API.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/HendryAvila/docsmith/internal/artifacts"
	"github.com/HendryAvila/docsmith/internal/changes"
	"github.com/HendryAvila/docsmith/internal/docerr"
	"github.com/HendryAvila/docsmith/internal/document"
	"github.com/HendryAvila/docsmith/internal/ingress"
	"github.com/HendryAvila/docsmith/internal/observability"
	"github.com/HendryAvila/docsmith/internal/session"
	"github.com/HendryAvila/docsmith/internal/suggest"
)

// ArtifactStore is the file persistence the editor needs.
type ArtifactStore interface {
	changes.ArtifactWriter
	Get(ctx context.Context, name string) (artifacts.Artifact, error)
	List(ctx context.Context, documentID string) ([]artifacts.Info, error)
}

// Config tunes the editor.
type Config struct {
	LongPassageWords int
	ShortenKeepWords int
	LockWait         time.Duration
	MaxUploadBytes   int64
	// PublicBaseURL prefixes download links; empty yields relative links.
	PublicBaseURL string
}

// Option configures optional collaborators.
type Option func(*Editor)

// WithMetrics records operation metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Editor) { e.metrics = m }
}

// WithFetcher enables uploads from remote URLs.
func WithFetcher(f *ingress.Fetcher) Option {
	return func(e *Editor) { e.fetcher = f }
}

// WithGenerator replaces the baseline rule set.
func WithGenerator(g *suggest.Generator) Option {
	return func(e *Editor) { e.generator = g }
}

// Editor implements upload, analyze, apply, download, describe, discard
// and list-suggestions.
type Editor struct {
	sessions   *session.Registry
	generator  *suggest.Generator
	applicator *changes.Applicator
	files      ArtifactStore
	fetcher    *ingress.Fetcher
	metrics    *observability.Metrics
	maxUpload  int64
	baseURL    string
}

// New creates an Editor storing artifacts in files.
func New(cfg Config, files ArtifactStore, opts ...Option) *Editor {
	reg := session.NewRegistry(document.NewStore(), cfg.LockWait)
	e := &Editor{
		sessions:   reg,
		generator:  suggest.Default(cfg.LongPassageWords, cfg.ShortenKeepWords),
		applicator: changes.NewApplicator(reg, files),
		files:      files,
		maxUpload:  cfg.MaxUploadBytes,
		baseURL:    strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxUploadBytes is the upload size cap, zero when unlimited.
func (e *Editor) MaxUploadBytes() int64 { return e.maxUpload }

// Rules lists the active suggestion rules.
func (e *Editor) Rules() []string { return e.generator.Rules() }

// --- Results ---

// UploadResult is returned by Upload.
type UploadResult struct {
	DocumentID string            `json:"doc_id"`
	Metadata   document.Metadata `json:"metadata"`
}

// AnalyzeResult is returned by Analyze.
type AnalyzeResult struct {
	DocumentID  string               `json:"doc_id"`
	Generation  int                  `json:"generation"`
	Request     string               `json:"request"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

// ApplyResult is returned by Apply.
type ApplyResult struct {
	*changes.Result
	AppliedCount   int    `json:"applied_count"`
	DownloadHandle string `json:"download_handle,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
}

// Description is returned by Describe.
type Description struct {
	DocumentID string            `json:"doc_id"`
	Metadata   document.Metadata `json:"metadata"`
	Units      []string          `json:"paragraphs"`
	Revision   int               `json:"revision"`
	Generation int               `json:"generation"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Artifacts  []artifacts.Info  `json:"artifacts"`
}

// SuggestionList is returned by ListSuggestions.
type SuggestionList struct {
	DocumentID  string          `json:"doc_id"`
	Generation  int             `json:"generation"`
	Suggestions []session.Entry `json:"suggestions"`
}

// --- Operations ---

// Upload decodes raw and opens an editing session for it.
func (e *Editor) Upload(ctx context.Context, filename string, raw []byte) (res *UploadResult, err error) {
	defer e.observe(observability.OpUpload, time.Now(), &err)

	if e.maxUpload > 0 && int64(len(raw)) > e.maxUpload {
		return nil, docerr.Invalid("upload is %d bytes, limit is %d", len(raw), e.maxUpload)
	}
	snap, err := e.sessions.Create(filename, raw)
	if err != nil {
		return nil, err
	}
	e.metrics.SetOpenDocuments(e.sessions.Len())
	slog.Info("document uploaded",
		"document_id", snap.ID,
		"filename", snap.Filename,
		"format", snap.Format,
		"units", len(snap.Units),
	)
	return &UploadResult{DocumentID: snap.ID, Metadata: snap.Metadata()}, nil
}

// UploadURL fetches a remote document and uploads it. A non-empty
// filename overrides the name derived from the response.
func (e *Editor) UploadURL(ctx context.Context, rawURL, filename string) (*UploadResult, error) {
	if e.fetcher == nil {
		return nil, docerr.Invalid("remote upload is disabled")
	}
	up, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(filename) != "" {
		up.Filename = filename
	}
	return e.Upload(ctx, up.Filename, up.Content)
}

// Analyze generates a new suggestion generation for the document,
// invalidating every suggestion id of the previous one.
func (e *Editor) Analyze(ctx context.Context, documentID, request string) (res *AnalyzeResult, err error) {
	defer e.observe(observability.OpAnalyze, time.Now(), &err)

	request = strings.TrimSpace(request)
	if request == "" {
		return nil, docerr.Invalid("request is required")
	}

	sess, release, err := e.sessions.Acquire(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := sess.Snapshot()
	if err != nil {
		return nil, err
	}
	suggestions := e.generator.Generate(snap, request)
	gen := sess.SetGeneration(request, snap, suggestions)

	byRule := make(map[string]int)
	for _, s := range suggestions {
		byRule[s.Rule]++
	}
	e.metrics.ObserveSuggestions(byRule)
	slog.Info("document analyzed",
		"document_id", documentID,
		"generation", gen.Number,
		"suggestions", len(suggestions),
	)
	return &AnalyzeResult{
		DocumentID:  documentID,
		Generation:  gen.Number,
		Request:     request,
		Suggestions: gen.Suggestions,
	}, nil
}

// Apply applies the accepted suggestions and stores the artifact.
func (e *Editor) Apply(ctx context.Context, documentID string, suggestionIDs []string) (res *ApplyResult, err error) {
	defer e.observe(observability.OpApply, time.Now(), &err)

	r, err := e.applicator.Apply(ctx, documentID, suggestionIDs)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveApply(r.AppliedCount(), len(r.Conflicts))

	out := &ApplyResult{Result: r, AppliedCount: r.AppliedCount()}
	if r.Artifact != nil {
		out.DownloadHandle = r.Artifact.Name
		out.DownloadURL = e.DownloadURL(r.Artifact.Name)
	}
	return out, nil
}

// Download returns the artifact stored under handle.
func (e *Editor) Download(ctx context.Context, handle string) (a artifacts.Artifact, err error) {
	defer e.observe(observability.OpDownload, time.Now(), &err)

	if strings.TrimSpace(handle) == "" || strings.ContainsAny(handle, `/\`) {
		return artifacts.Artifact{}, docerr.NotFound("artifact", handle)
	}
	return e.files.Get(ctx, handle)
}

// DownloadURL builds the public link for an artifact handle.
func (e *Editor) DownloadURL(handle string) string {
	return e.baseURL + "/downloads/" + url.PathEscape(handle)
}

// Describe returns the current state of a document.
func (e *Editor) Describe(ctx context.Context, documentID string) (d *Description, err error) {
	defer e.observe(observability.OpDescribe, time.Now(), &err)

	sess, err := e.sessions.Lookup(documentID)
	if err != nil {
		return nil, err
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return nil, err
	}
	arts, err := e.files.List(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	return &Description{
		DocumentID: snap.ID,
		Metadata:   snap.Metadata(),
		Units:      snap.Units,
		Revision:   snap.Revision,
		Generation: sess.GenerationNumber(),
		CreatedAt:  snap.CreatedAt,
		UpdatedAt:  snap.UpdatedAt,
		Artifacts:  arts,
	}, nil
}

// ListSuggestions returns the live generation with apply flags.
func (e *Editor) ListSuggestions(ctx context.Context, documentID string) (*SuggestionList, error) {
	sess, err := e.sessions.Lookup(documentID)
	if err != nil {
		return nil, err
	}
	n, entries := sess.Entries()
	return &SuggestionList{DocumentID: documentID, Generation: n, Suggestions: entries}, nil
}

// Discard closes the session and forgets the document. Artifacts already
// produced stay downloadable until the retention sweep removes them.
func (e *Editor) Discard(ctx context.Context, documentID string) (err error) {
	defer e.observe(observability.OpDiscard, time.Now(), &err)

	sess, release, err := e.sessions.Acquire(ctx, documentID)
	if err != nil {
		return err
	}
	defer release()
	if err := e.sessions.Remove(sess); err != nil {
		return err
	}
	e.metrics.SetOpenDocuments(e.sessions.Len())
	slog.Info("document discarded", "document_id", documentID)
	return nil
}

func (e *Editor) observe(op string, start time.Time, errp *error) {
	e.metrics.ObserveOperation(op, start, *errp)
	if *errp != nil && docerr.CodeOf(*errp) == docerr.CodeInternal {
		slog.Error("operation failed", "op", op, "error", *errp)
	}
}
