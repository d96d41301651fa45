package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/HendryAvila/docsmith/internal/docerr"
	"github.com/HendryAvila/docsmith/internal/document"
	"github.com/HendryAvila/docsmith/internal/suggest"
)

// Session binds one document to its live suggestion generation.
//
// Analyze and apply hold the session's operation lock (see
// Registry.Acquire) for their whole read-modify-write. The RWMutex only
// guards the generation pointer and its ledger for readers that do not
// take the operation lock, such as describe.
type Session struct {
	id   string
	docs *document.Store
	op   chan struct{}

	mu          sync.RWMutex
	gen         *Generation
	generations int
	closed      bool
}

func newSession(id string, docs *document.Store) *Session {
	return &Session{id: id, docs: docs, op: make(chan struct{}, 1)}
}

// ID returns the document identifier.
func (s *Session) ID() string { return s.id }

// Snapshot returns an isolated copy of the current document.
func (s *Session) Snapshot() (document.Snapshot, error) {
	return s.docs.Get(s.id)
}

// SetGeneration replaces the live generation wholesale. Every suggestion id
// of the previous generation becomes stale. Caller must hold the operation
// lock.
func (s *Session) SetGeneration(instruction string, snap document.Snapshot, suggestions []suggest.Suggestion) *Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations++
	s.gen = newGeneration(s.generations, instruction, snap.Units, suggestions, time.Now().UTC())
	return s.gen
}

// Generation returns the live generation, or nil before the first analyze.
// The returned value must be treated as read-only.
func (s *Session) Generation() *Generation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// GenerationNumber returns how many analyze calls have completed, which is
// also the number of the live generation.
func (s *Session) GenerationNumber() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations
}

// Resolve maps ids to suggestions of the live generation, in the order the
// generation lists them. Any id outside the live generation makes the whole
// call fail with a StaleSuggestionError naming every such id.
func (s *Session) Resolve(ids []string) (*Generation, []suggest.Suggestion, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	if gen == nil {
		return nil, nil, &docerr.StaleSuggestionError{DocumentID: s.id, IDs: ids}
	}

	type found struct {
		s   suggest.Suggestion
		pos int
	}
	var (
		hits  []found
		stale []string
	)
	for _, id := range ids {
		sg, pos, ok := gen.Lookup(id)
		if !ok {
			stale = append(stale, id)
			continue
		}
		hits = append(hits, found{sg, pos})
	}
	if len(stale) > 0 {
		return nil, nil, &docerr.StaleSuggestionError{DocumentID: s.id, IDs: stale}
	}

	out := make([]suggest.Suggestion, len(gen.Suggestions))
	n := 0
	for _, h := range hits {
		out[h.pos] = h.s
	}
	for _, sg := range out {
		if sg.ID != "" {
			out[n] = sg
			n++
		}
	}
	return gen, out[:n], nil
}

// Ledger returns a copy of the apply history of gen.
func (s *Session) Ledger(gen *Generation) Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gen.ledger()
}

// Entries lists the live generation with apply flags. Returns the
// generation number alongside; zero means no analyze has run yet.
func (s *Session) Entries() (int, []Entry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gen == nil {
		return 0, []Entry{}
	}
	return s.gen.Number, s.gen.entries()
}

// Commit swaps in the new unit sequence and records edits against gen.
// This is the single visible commit point of an apply. Caller must hold
// the operation lock, and gen must still be the live generation.
func (s *Session) Commit(gen *Generation, units []string, edits []Edit) (document.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return document.Snapshot{}, fmt.Errorf("session %s: generation %d is no longer live", s.id, gen.Number)
	}
	snap, err := s.docs.ReplaceUnits(s.id, units)
	if err != nil {
		return document.Snapshot{}, fmt.Errorf("replacing units: %w", err)
	}
	gen.record(edits)
	return snap, nil
}
