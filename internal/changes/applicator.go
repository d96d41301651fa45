// Package changes applies accepted suggestions to a document and produces
// the downloadable artifact.
//
// An apply is partial-success: suggestions that overlap an earlier edit,
// or whose original text is gone, are reported as conflicts and skipped
// while the rest of the batch goes through. The unit swap in
// session.Commit is the only externally visible step; an apply that fails
// before it leaves the document untouched.
package changes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HendryAvila/docsmith/internal/artifacts"
	"github.com/HendryAvila/docsmith/internal/docerr"
	"github.com/HendryAvila/docsmith/internal/session"
)

// ArtifactWriter is the file persistence an Applicator writes to.
type ArtifactWriter interface {
	Put(ctx context.Context, name, documentID, filename, mimeType string, content []byte) (artifacts.Info, error)
	Delete(ctx context.Context, name string) error
}

// UnitChange is one entry of the simulated diff.
type UnitChange struct {
	Index  int    `json:"index"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Result reports what an apply did.
type Result struct {
	DocumentID string                 `json:"doc_id"`
	Revision   int                    `json:"revision"`
	Applied    []string               `json:"applied"`
	Conflicts  []docerr.ConflictError `json:"conflicts"`
	Changes    []UnitChange           `json:"changes"`
	// Artifact is nil when nothing was applied.
	Artifact *artifacts.Info `json:"artifact,omitempty"`
}

// AppliedCount is the number of suggestions that made it into the document.
func (r *Result) AppliedCount() int { return len(r.Applied) }

// Applicator mutates documents through their sessions.
type Applicator struct {
	sessions *session.Registry
	files    ArtifactWriter
}

// NewApplicator creates an Applicator.
func NewApplicator(sessions *session.Registry, files ArtifactWriter) *Applicator {
	return &Applicator{sessions: sessions, files: files}
}

// Apply applies the suggestions named by ids from the document's live
// generation. Failure order: unknown document, empty selection, busy
// document, stale ids. Conflicts are never a failure of the call; they are
// listed in the result. When every suggestion conflicts, nothing is
// committed and Result.Artifact is nil.
func (a *Applicator) Apply(ctx context.Context, documentID string, ids []string) (*Result, error) {
	if _, err := a.sessions.Lookup(documentID); err != nil {
		return nil, err
	}
	ids = normalizeIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("document %s: %w", documentID, docerr.ErrEmptySelection)
	}

	sess, release, err := a.sessions.Acquire(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer release()

	gen, accepted, err := sess.Resolve(ids)
	if err != nil {
		return nil, err
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return nil, err
	}

	p := planBatch(snap.Units, gen.Units, accepted, sess.Ledger(gen))
	res := &Result{
		DocumentID: documentID,
		Revision:   snap.Revision,
		Applied:    nonNil(p.applied),
		Conflicts:  p.conflicts,
		Changes:    p.changes,
	}
	if res.Conflicts == nil {
		res.Conflicts = []docerr.ConflictError{}
	}
	if res.Changes == nil {
		res.Changes = []UnitChange{}
	}
	if len(p.applied) == 0 {
		slog.Info("apply committed nothing",
			"document_id", documentID,
			"requested", len(ids),
			"conflicts", len(p.conflicts),
		)
		return res, nil
	}

	content, mimeType, err := a.sessions.Documents().Render(documentID, p.units)
	if err != nil {
		return nil, fmt.Errorf("rendering document %s: %w", documentID, err)
	}
	name := ArtifactName(documentID, snap.Revision+1, snap.Filename)
	info, err := a.files.Put(ctx, name, documentID, DownloadFilename(snap.Filename), mimeType, content)
	if err != nil {
		return nil, fmt.Errorf("storing artifact: %w", err)
	}

	after, err := sess.Commit(gen, p.units, p.edits)
	if err != nil {
		if derr := a.files.Delete(context.WithoutCancel(ctx), name); derr != nil {
			slog.Warn("orphaned artifact", "name", name, "error", derr)
		}
		return nil, fmt.Errorf("committing document %s: %w", documentID, err)
	}

	res.Revision = after.Revision
	res.Artifact = &info
	slog.Info("changes applied",
		"document_id", documentID,
		"generation", gen.Number,
		"applied", len(p.applied),
		"conflicts", len(p.conflicts),
		"artifact", name,
	)
	return res, nil
}

// normalizeIDs trims ids, drops blanks and removes duplicates, keeping the
// first occurrence.
func normalizeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
