package changes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HendryAvila/docsmith/internal/artifacts"
	"github.com/HendryAvila/docsmith/internal/docerr"
	"github.com/HendryAvila/docsmith/internal/document"
	"github.com/HendryAvila/docsmith/internal/document/doctest"
	"github.com/HendryAvila/docsmith/internal/session"
	"github.com/HendryAvila/docsmith/internal/suggest"
)

// --- Helpers ---

// memWriter is an in-memory ArtifactWriter.
type memWriter struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
	putErr  error
}

func newMemWriter() *memWriter { return &memWriter{files: make(map[string][]byte)} }

func (w *memWriter) Put(_ context.Context, name, documentID, filename, mimeType string, content []byte) (artifacts.Info, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.putErr != nil {
		return artifacts.Info{}, w.putErr
	}
	if _, ok := w.files[name]; ok {
		return artifacts.Info{}, artifacts.ErrExists
	}
	w.files[name] = content
	return artifacts.Info{Name: name, DocumentID: documentID, Filename: filename, MIMEType: mimeType, Size: int64(len(content))}, nil
}

func (w *memWriter) Delete(_ context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, name)
	w.deleted = append(w.deleted, name)
	return nil
}

func (w *memWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.files)
}

type fixture struct {
	reg   *session.Registry
	files *memWriter
	app   *Applicator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := session.NewRegistry(document.NewStore(), 2*time.Second)
	files := newMemWriter()
	return &fixture{reg: reg, files: files, app: NewApplicator(reg, files)}
}

func (f *fixture) upload(t *testing.T, filename string, raw []byte) string {
	t.Helper()
	snap, err := f.reg.Create(filename, raw)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return snap.ID
}

func (f *fixture) analyze(t *testing.T, id, instruction string) []suggest.Suggestion {
	t.Helper()
	s, release, err := f.reg.Acquire(context.Background(), id)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return s.SetGeneration(instruction, snap, suggest.Default(30, 20).Generate(snap, instruction)).Suggestions
}

func (f *fixture) units(t *testing.T, id string) []string {
	t.Helper()
	snap, err := f.reg.Documents().Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return snap.Units
}

func ids(ss []suggest.Suggestion) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.ID
	}
	return out
}

func longUnit(prefix string, n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return prefix + strings.Join(w, " ")
}

// --- Scenarios ---

func TestApply_FormalizeScenario(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "note.txt", []byte("I don't think that's correct."))
	sugs := f.analyze(t, id, "formalize")
	if len(sugs) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(sugs))
	}

	res, err := f.app.Apply(context.Background(), id, ids(sugs))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.AppliedCount() != 1 || len(res.Conflicts) != 0 {
		t.Errorf("applied=%d conflicts=%v", res.AppliedCount(), res.Conflicts)
	}
	if got := f.units(t, id)[0]; got != "I do not think that's correct." {
		t.Errorf("unit = %q", got)
	}
	if res.Artifact == nil {
		t.Fatal("expected an artifact")
	}
	if want := id + "-r1-note_modified.txt"; res.Artifact.Name != want {
		t.Errorf("artifact name = %q, want %q", res.Artifact.Name, want)
	}
	if res.Artifact.Filename != "note_modified.txt" {
		t.Errorf("download filename = %q", res.Artifact.Filename)
	}
	if got := string(f.files.files[res.Artifact.Name]); got != "I do not think that's correct." {
		t.Errorf("artifact content = %q", got)
	}
	if res.Revision != 1 {
		t.Errorf("Revision = %d, want 1", res.Revision)
	}
	want := []UnitChange{{Index: 0, Before: "I don't think that's correct.", After: "I do not think that's correct."}}
	if len(res.Changes) != 1 || res.Changes[0] != want[0] {
		t.Errorf("Changes = %+v", res.Changes)
	}
}

func TestApply_DOCXRoundTrip(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "Q3 Report.docx", doctest.DOCX("Intro", "We can't stop.", "", "They're here."))
	sugs := f.analyze(t, id, "make it formal")
	if len(sugs) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(sugs))
	}

	res, err := f.app.Apply(context.Background(), id, ids(sugs))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.HasSuffix(res.Artifact.Name, "-r1-q3-report_modified.docx") {
		t.Errorf("artifact name = %q", res.Artifact.Name)
	}

	out, err := document.NewStore().Create("out.docx", f.files.files[res.Artifact.Name])
	if err != nil {
		t.Fatalf("artifact does not decode: %v", err)
	}
	want := []string{"Intro", "We cannot stop.", "", "They are here."}
	if strings.Join(out.Units, "|") != strings.Join(want, "|") {
		t.Errorf("artifact units = %q, want %q", out.Units, want)
	}
}

func TestApply_AllNonOverlapping(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte("don't can't won't\nI'm sure.\nnothing here"))
	sugs := f.analyze(t, id, "formal")
	if len(sugs) != 4 {
		t.Fatalf("got %d suggestions, want 4", len(sugs))
	}

	res, err := f.app.Apply(context.Background(), id, ids(sugs))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.AppliedCount() != len(sugs) || len(res.Conflicts) != 0 {
		t.Errorf("applied=%d conflicts=%v", res.AppliedCount(), res.Conflicts)
	}
	got := f.units(t, id)
	if got[0] != "do not cannot will not" || got[1] != "I am sure." || got[2] != "nothing here" {
		t.Errorf("units = %q", got)
	}
	if len(res.Changes) != 2 {
		t.Errorf("Changes = %d entries, want 2", len(res.Changes))
	}
}

func TestApply_StaleAfterNewGeneration(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte("I don't know."))
	old := f.analyze(t, id, "formal")
	f.analyze(t, id, "formal")

	_, err := f.app.Apply(context.Background(), id, ids(old))
	if !errors.Is(err, docerr.ErrStaleSuggestion) {
		t.Fatalf("err = %v, want ErrStaleSuggestion", err)
	}
	if got := f.units(t, id)[0]; got != "I don't know." {
		t.Errorf("document mutated: %q", got)
	}
	if f.files.count() != 0 {
		t.Error("artifact produced on stale apply")
	}
}

func TestApply_StaleMixedWithLiveMutatesNothing(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte("I don't know."))
	live := f.analyze(t, id, "formal")

	_, err := f.app.Apply(context.Background(), id, []string{live[0].ID, "bogus"})
	var stale *docerr.StaleSuggestionError
	if !errors.As(err, &stale) || len(stale.IDs) != 1 || stale.IDs[0] != "bogus" {
		t.Fatalf("err = %v, want stale [bogus]", err)
	}
	if got := f.units(t, id)[0]; got != "I don't know." {
		t.Errorf("document mutated: %q", got)
	}
}

func TestApply_OverlapChosenByStartOffset(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte(longUnit("Don't ", 30)))
	sugs := f.analyze(t, id, "formal and concise")
	if len(sugs) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(sugs))
	}

	// Request in reverse order; resolution follows the generation.
	res, err := f.app.Apply(context.Background(), id, []string{sugs[1].ID, sugs[0].ID})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.AppliedCount() != 1 || len(res.Conflicts) != 1 {
		t.Fatalf("applied=%v conflicts=%v", res.Applied, res.Conflicts)
	}
	if res.Applied[0] != sugs[0].ID || sugs[0].Rationale != suggest.RationaleContraction {
		t.Errorf("applied %v, want the contraction %s", res.Applied, sugs[0].ID)
	}
	c := res.Conflicts[0]
	if c.SuggestionID != sugs[1].ID || !strings.Contains(c.Reason, sugs[0].ID) {
		t.Errorf("conflict = %+v", c)
	}
	if !strings.HasPrefix(f.units(t, id)[0], "Do not w0") {
		t.Errorf("unit = %q", f.units(t, id)[0])
	}
}

func TestApply_EmptySelection(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte("I don't know."))
	f.analyze(t, id, "formal")

	for _, sel := range [][]string{nil, {}, {"", "  "}} {
		_, err := f.app.Apply(context.Background(), id, sel)
		if !errors.Is(err, docerr.ErrEmptySelection) {
			t.Errorf("Apply(%q) err = %v, want ErrEmptySelection", sel, err)
		}
	}
	snap, _ := f.reg.Documents().Get(id)
	if snap.Revision != 0 || snap.Units[0] != "I don't know." {
		t.Errorf("document changed: %+v", snap)
	}
	if f.files.count() != 0 {
		t.Error("artifact produced for empty selection")
	}
}

func TestApply_UnknownDocument(t *testing.T) {
	f := newFixture(t)
	_, err := f.app.Apply(context.Background(), "nope", nil)
	if !errors.Is(err, docerr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound before EmptySelection", err)
	}
}

func TestApply_AlreadyAppliedIsConflict(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte("I don't know."))
	sugs := f.analyze(t, id, "formal")

	if _, err := f.app.Apply(context.Background(), id, ids(sugs)); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	res, err := f.app.Apply(context.Background(), id, ids(sugs))
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if res.AppliedCount() != 0 || len(res.Conflicts) != 1 || res.Conflicts[0].Reason != ReasonAlreadyApplied {
		t.Errorf("second apply = %+v", res)
	}
	if res.Artifact != nil {
		t.Error("no artifact expected when nothing applied")
	}
	if got := f.units(t, id)[0]; got != "I do not know." {
		t.Errorf("unit = %q", got)
	}
	if f.files.count() != 1 {
		t.Errorf("artifacts = %d, want 1", f.files.count())
	}
}

func TestApply_SequentialAppliesShiftOffsets(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte("don't can't won't"))
	sugs := f.analyze(t, id, "formal")
	if len(sugs) != 3 {
		t.Fatalf("got %d suggestions, want 3", len(sugs))
	}

	for _, i := range []int{2, 0, 1} {
		res, err := f.app.Apply(context.Background(), id, []string{sugs[i].ID})
		if err != nil {
			t.Fatalf("Apply #%d: %v", i, err)
		}
		if res.AppliedCount() != 1 {
			t.Fatalf("Apply #%d conflicts: %+v", i, res.Conflicts)
		}
	}
	if got := f.units(t, id)[0]; got != "do not cannot will not" {
		t.Errorf("unit = %q", got)
	}
	snap, _ := f.reg.Documents().Get(id)
	if snap.Revision != 3 {
		t.Errorf("Revision = %d, want 3", snap.Revision)
	}
}

func TestApply_OverlapWithEarlierApply(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte(longUnit("Don't ", 30)))
	sugs := f.analyze(t, id, "formal and concise")

	if _, err := f.app.Apply(context.Background(), id, []string{sugs[1].ID}); err != nil {
		t.Fatalf("Apply shorten: %v", err)
	}
	res, err := f.app.Apply(context.Background(), id, []string{sugs[0].ID})
	if err != nil {
		t.Fatalf("Apply contraction: %v", err)
	}
	if res.AppliedCount() != 0 || len(res.Conflicts) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestApply_DuplicateIDsCountOnce(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte("I don't know."))
	sugs := f.analyze(t, id, "formal")

	res, err := f.app.Apply(context.Background(), id, []string{sugs[0].ID, sugs[0].ID})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.AppliedCount() != 1 || len(res.Conflicts) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestApply_Busy(t *testing.T) {
	reg := session.NewRegistry(document.NewStore(), 10*time.Millisecond)
	f := &fixture{reg: reg, files: newMemWriter()}
	f.app = NewApplicator(reg, f.files)
	id := f.upload(t, "a.txt", []byte("I don't know."))
	sugs := f.analyze(t, id, "formal")

	_, release, err := reg.Acquire(context.Background(), id)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	_, err = f.app.Apply(context.Background(), id, ids(sugs))
	release()
	if !errors.Is(err, docerr.ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if got := f.units(t, id)[0]; got != "I don't know." {
		t.Errorf("document mutated while busy: %q", got)
	}
}

func TestApply_ConcurrentAppliesNeverLoseEdits(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte("don't can't won't shan't isn't"))
	sugs := f.analyze(t, id, "formal")
	if len(sugs) != 5 {
		t.Fatalf("got %d suggestions, want 5", len(sugs))
	}

	var wg sync.WaitGroup
	for _, s := range sugs {
		wg.Add(1)
		go func(sid string) {
			defer wg.Done()
			res, err := f.app.Apply(context.Background(), id, []string{sid})
			if err != nil {
				t.Errorf("Apply: %v", err)
				return
			}
			if res.AppliedCount() != 1 {
				t.Errorf("conflicts: %+v", res.Conflicts)
			}
		}(s.ID)
	}
	wg.Wait()

	if got := f.units(t, id)[0]; got != "do not cannot will not shall not is not" {
		t.Errorf("unit = %q", got)
	}
	if f.files.count() != 5 {
		t.Errorf("artifacts = %d, want 5", f.files.count())
	}
}

func TestApply_ArtifactFailureLeavesDocument(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "a.txt", []byte("I don't know."))
	sugs := f.analyze(t, id, "formal")
	f.files.putErr = errors.New("disk full")

	if _, err := f.app.Apply(context.Background(), id, ids(sugs)); err == nil {
		t.Fatal("expected error")
	}
	if got := f.units(t, id)[0]; got != "I don't know." {
		t.Errorf("document mutated: %q", got)
	}

	// The generation is still live and the suggestion still applies.
	f.files.putErr = nil
	res, err := f.app.Apply(context.Background(), id, ids(sugs))
	if err != nil || res.AppliedCount() != 1 {
		t.Fatalf("retry = %+v, %v", res, err)
	}
}

func TestApply_WithSQLiteStore(t *testing.T) {
	store, err := artifacts.New(artifacts.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("artifacts.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := session.NewRegistry(document.NewStore(), time.Second)
	app := NewApplicator(reg, store)
	snap, _ := reg.Create("n.txt", []byte("can't\r\nwon't\r\n"))
	f := &fixture{reg: reg, app: app}
	sugs := f.analyze(t, snap.ID, "formal")

	res, err := app.Apply(context.Background(), snap.ID, ids(sugs))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	a, err := store.Get(context.Background(), res.Artifact.Name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(a.Content) != "cannot\r\nwill not\r\n" {
		t.Errorf("artifact = %q", a.Content)
	}
}
