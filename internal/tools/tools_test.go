package tools

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/docsmith/internal/artifacts"
	"github.com/HendryAvila/docsmith/internal/docerr"
	"github.com/HendryAvila/docsmith/internal/document/doctest"
	"github.com/HendryAvila/docsmith/internal/editor"
	"github.com/HendryAvila/docsmith/internal/ingress"
)

// --- Helpers ---

func newTestEditor(t *testing.T, opts ...editor.Option) *editor.Editor {
	t.Helper()
	store, err := artifacts.New(artifacts.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("artifacts.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return editor.New(editor.Config{
		LongPassageWords: 30,
		ShortenKeepWords: 20,
		LockWait:         time.Second,
		MaxUploadBytes:   1 << 20,
	}, store, opts...)
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func upload(t *testing.T, e *editor.Editor, filename, text string) string {
	t.Helper()
	res, err := NewUploadTool(e).Handle(context.Background(), makeReq(map[string]interface{}{
		"filename": filename,
		"content":  base64.StdEncoding.EncodeToString([]byte(text)),
	}))
	if err != nil || isErrorResult(res) {
		t.Fatalf("upload: %v %s", err, getResultText(res))
	}
	out, ok := res.StructuredContent.(*editor.UploadResult)
	if !ok {
		t.Fatalf("structured content = %T", res.StructuredContent)
	}
	return out.DocumentID
}

func analyze(t *testing.T, e *editor.Editor, id, request string) *editor.AnalyzeResult {
	t.Helper()
	res, err := NewAnalyzeTool(e).Handle(context.Background(), makeReq(map[string]interface{}{
		"doc_id":  id,
		"request": request,
	}))
	if err != nil || isErrorResult(res) {
		t.Fatalf("analyze: %v %s", err, getResultText(res))
	}
	return res.StructuredContent.(*editor.AnalyzeResult)
}

// --- Definitions ---

func TestDefinitions(t *testing.T) {
	e := newTestEditor(t)
	tests := []struct {
		def      mcp.Tool
		name     string
		required []string
	}{
		{NewUploadTool(e).Definition(), "upload_document", nil},
		{NewAnalyzeTool(e).Definition(), "analyze_and_suggest", []string{"doc_id", "request"}},
		{NewApplyTool(e).Definition(), "apply_changes", []string{"doc_id", "suggestion_ids"}},
		{NewDownloadTool(e).Definition(), "download_document", []string{"handle"}},
		{NewGetDocumentTool(e).Definition(), "get_document", []string{"doc_id"}},
		{NewDiscardDocumentTool(e).Definition(), "discard_document", []string{"doc_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.def.Name != tt.name {
				t.Errorf("Name = %q", tt.def.Name)
			}
			if strings.TrimSpace(tt.def.Description) == "" {
				t.Error("empty description")
			}
			for _, r := range tt.required {
				if _, ok := tt.def.InputSchema.Properties[r]; !ok {
					t.Errorf("missing property %q", r)
				}
			}
			if len(tt.def.InputSchema.Required) != len(tt.required) {
				t.Errorf("Required = %v, want %v", tt.def.InputSchema.Required, tt.required)
			}
		})
	}
}

func TestUploadTool_Definition_HasSources(t *testing.T) {
	def := NewUploadTool(newTestEditor(t)).Definition()
	for _, p := range []string{"filename", "content", "url"} {
		if _, ok := def.InputSchema.Properties[p]; !ok {
			t.Errorf("missing property %q", p)
		}
	}
}

// --- upload_document ---

func TestUploadTool_Base64(t *testing.T) {
	e := newTestEditor(t)
	res, err := NewUploadTool(e).Handle(context.Background(), makeReq(map[string]interface{}{
		"filename": "memo.docx",
		"content":  base64.StdEncoding.EncodeToString(doctest.DOCX("I don't think that's correct.")),
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if isErrorResult(res) {
		t.Fatalf("unexpected error result: %s", getResultText(res))
	}
	text := getResultText(res)
	if !strings.Contains(text, "Uploaded document: memo.docx") || !strings.Contains(text, "Word count: 5") {
		t.Errorf("text = %q", text)
	}
}

func TestUploadTool_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("We can't stop."))
	}))
	defer srv.Close()

	e := newTestEditor(t, editor.WithFetcher(ingress.NewFetcher(ingress.Config{}, srv.Client())))
	res, err := NewUploadTool(e).Handle(context.Background(), makeReq(map[string]interface{}{
		"url": srv.URL + "/notes.txt",
	}))
	if err != nil || isErrorResult(res) {
		t.Fatalf("Handle: %v %s", err, getResultText(res))
	}
	if !strings.Contains(getResultText(res), "notes.txt") {
		t.Errorf("text = %q", getResultText(res))
	}
}

func TestUploadTool_Rejects(t *testing.T) {
	e := newTestEditor(t)
	tests := []struct {
		name string
		args map[string]interface{}
		code docerr.Code
	}{
		{"nothing", map[string]interface{}{"filename": "a.txt"}, docerr.CodeInvalidArgument},
		{"both sources", map[string]interface{}{"filename": "a.txt", "content": "eA==", "url": "https://x"}, docerr.CodeInvalidArgument},
		{"no filename", map[string]interface{}{"content": "eA=="}, docerr.CodeInvalidArgument},
		{"bad base64", map[string]interface{}{"filename": "a.txt", "content": "!!!"}, docerr.CodeInvalidArgument},
		{"malformed docx", map[string]interface{}{
			"filename": "a.docx",
			"content":  base64.StdEncoding.EncodeToString([]byte("not a zip")),
		}, docerr.CodeDecode},
		{"url disabled", map[string]interface{}{"url": "https://example.com/a.txt"}, docerr.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewUploadTool(e).Handle(context.Background(), makeReq(tt.args))
			if err != nil {
				t.Fatalf("unexpected Go error: %v", err)
			}
			if !isErrorResult(res) {
				t.Fatalf("expected error result, got %q", getResultText(res))
			}
			if !strings.HasPrefix(getResultText(res), "["+string(tt.code)+"]") {
				t.Errorf("text = %q, want code %s", getResultText(res), tt.code)
			}
		})
	}
}

// --- analyze_and_suggest ---

func TestAnalyzeTool_Formalize(t *testing.T) {
	e := newTestEditor(t)
	id := upload(t, e, "note.txt", "I don't think that's correct.")

	res, err := NewAnalyzeTool(e).Handle(context.Background(), makeReq(map[string]interface{}{
		"doc_id":  id,
		"request": "make it more formal",
	}))
	if err != nil || isErrorResult(res) {
		t.Fatalf("Handle: %v %s", err, getResultText(res))
	}
	text := getResultText(res)
	if !strings.HasPrefix(text, "Found 1 suggestions for: make it more formal") {
		t.Errorf("text = %q", text)
	}
	out := res.StructuredContent.(*editor.AnalyzeResult)
	if out.DocumentID != id || len(out.Suggestions) != 1 || out.Suggestions[0].Proposed != "do not" {
		t.Errorf("structured = %+v", out)
	}
}

func TestAnalyzeTool_UnknownDocument(t *testing.T) {
	res, err := NewAnalyzeTool(newTestEditor(t)).Handle(context.Background(), makeReq(map[string]interface{}{
		"doc_id":  "missing",
		"request": "formal",
	}))
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !isErrorResult(res) || !strings.HasPrefix(getResultText(res), "[not_found]") {
		t.Errorf("result = %q", getResultText(res))
	}
	f, ok := res.StructuredContent.(docerr.Failure)
	if !ok || f.Details["id"] != "missing" {
		t.Errorf("structured = %#v", res.StructuredContent)
	}
}

// --- apply_changes ---

func TestApplyTool_AppliesAndRendersDiff(t *testing.T) {
	e := newTestEditor(t)
	id := upload(t, e, "note.txt", "I don't think that's correct.")
	an := analyze(t, e, id, "formal")

	res, err := NewApplyTool(e).Handle(context.Background(), makeReq(map[string]interface{}{
		"doc_id":         id,
		"suggestion_ids": []interface{}{an.Suggestions[0].ID},
	}))
	if err != nil || isErrorResult(res) {
		t.Fatalf("Handle: %v %s", err, getResultText(res))
	}
	text := getResultText(res)
	for _, want := range []string{
		"Applied 1 changes to document",
		"/downloads/" + id + "-r1-note_modified.txt",
		"- I don't think that's correct.",
		"+ I do not think that's correct.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
	out := res.StructuredContent.(*editor.ApplyResult)
	if out.AppliedCount != 1 || out.DownloadHandle == "" {
		t.Errorf("structured = %+v", out)
	}
}

func TestApplyTool_ReportsConflicts(t *testing.T) {
	e := newTestEditor(t)
	id := upload(t, e, "a.txt", "I don't know.")
	an := analyze(t, e, id, "formal")
	ids := []interface{}{an.Suggestions[0].ID}

	NewApplyTool(e).Handle(context.Background(), makeReq(map[string]interface{}{"doc_id": id, "suggestion_ids": ids}))
	res, err := NewApplyTool(e).Handle(context.Background(), makeReq(map[string]interface{}{"doc_id": id, "suggestion_ids": ids}))
	if err != nil || isErrorResult(res) {
		t.Fatalf("Handle: %v %s", err, getResultText(res))
	}
	text := getResultText(res)
	if !strings.Contains(text, "Applied 0 changes") || !strings.Contains(text, "already applied") {
		t.Errorf("text = %q", text)
	}
	if strings.Contains(text, "Download:") {
		t.Errorf("no download expected: %q", text)
	}
}

func TestApplyTool_Errors(t *testing.T) {
	e := newTestEditor(t)
	id := upload(t, e, "a.txt", "I don't know.")
	analyze(t, e, id, "formal")

	tests := []struct {
		name string
		args map[string]interface{}
		code docerr.Code
	}{
		{"empty selection", map[string]interface{}{"doc_id": id, "suggestion_ids": []interface{}{}}, docerr.CodeEmptySelection},
		{"missing ids", map[string]interface{}{"doc_id": id}, docerr.CodeEmptySelection},
		{"stale id", map[string]interface{}{"doc_id": id, "suggestion_ids": []interface{}{"01OLD"}}, docerr.CodeStaleSuggestion},
		{"single string id", map[string]interface{}{"doc_id": id, "suggestion_ids": "01OLD"}, docerr.CodeStaleSuggestion},
		{"unknown document", map[string]interface{}{"doc_id": "nope", "suggestion_ids": []interface{}{"x"}}, docerr.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewApplyTool(e).Handle(context.Background(), makeReq(tt.args))
			if err != nil {
				t.Fatalf("unexpected Go error: %v", err)
			}
			if !isErrorResult(res) || !strings.HasPrefix(getResultText(res), "["+string(tt.code)+"]") {
				t.Errorf("text = %q, want code %s", getResultText(res), tt.code)
			}
		})
	}
}

// --- download_document ---

func TestDownloadTool_EmbedsArtifact(t *testing.T) {
	e := newTestEditor(t)
	id := upload(t, e, "a.txt", "I don't know.")
	an := analyze(t, e, id, "formal")
	ap, err := e.Apply(context.Background(), id, []string{an.Suggestions[0].ID})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	res, err := NewDownloadTool(e).Handle(context.Background(), makeReq(map[string]interface{}{
		"handle": ap.DownloadHandle,
	}))
	if err != nil || isErrorResult(res) {
		t.Fatalf("Handle: %v %s", err, getResultText(res))
	}
	if len(res.Content) != 2 {
		t.Fatalf("content parts = %d, want 2", len(res.Content))
	}
	emb, ok := res.Content[1].(mcp.EmbeddedResource)
	if !ok {
		t.Fatalf("content[1] = %T", res.Content[1])
	}
	blob, ok := emb.Resource.(mcp.BlobResourceContents)
	if !ok {
		t.Fatalf("resource = %T", emb.Resource)
	}
	raw, _ := base64.StdEncoding.DecodeString(blob.Blob)
	if string(raw) != "I do not know." {
		t.Errorf("artifact = %q", raw)
	}
}

func TestDownloadTool_NotFound(t *testing.T) {
	res, err := NewDownloadTool(newTestEditor(t)).Handle(context.Background(), makeReq(map[string]interface{}{
		"handle": "nope",
	}))
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !isErrorResult(res) || !strings.HasPrefix(getResultText(res), "[not_found]") {
		t.Errorf("text = %q", getResultText(res))
	}
}

// --- get_document / discard_document ---

func TestGetAndDiscardDocument(t *testing.T) {
	e := newTestEditor(t)
	id := upload(t, e, "a.txt", "first line\n\nthird line")

	res, err := NewGetDocumentTool(e).Handle(context.Background(), makeReq(map[string]interface{}{"doc_id": id}))
	if err != nil || isErrorResult(res) {
		t.Fatalf("get: %v %s", err, getResultText(res))
	}
	text := getResultText(res)
	if !strings.Contains(text, "[0] first line") || !strings.Contains(text, "[2] third line") || strings.Contains(text, "[1]") {
		t.Errorf("text = %q", text)
	}

	res, err = NewDiscardDocumentTool(e).Handle(context.Background(), makeReq(map[string]interface{}{"doc_id": id}))
	if err != nil || isErrorResult(res) {
		t.Fatalf("discard: %v %s", err, getResultText(res))
	}

	res, _ = NewGetDocumentTool(e).Handle(context.Background(), makeReq(map[string]interface{}{"doc_id": id}))
	if !isErrorResult(res) {
		t.Errorf("get after discard should fail, got %q", getResultText(res))
	}
}
