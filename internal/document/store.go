package document

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HendryAvila/docsmith/internal/docerr"
)

// entry is the stored form of a document. Its fields are never modified
// after it is placed in the map; ReplaceUnits stores a new entry.
type entry struct {
	snap   Snapshot
	codec  Codec
	source []byte
}

// Store holds decoded documents in process memory.
// Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]*entry
	newID func() string
	now   func() time.Time
}

// NewStore creates an empty in-memory document store.
func NewStore() *Store {
	return &Store{
		docs:  make(map[string]*entry),
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create decodes raw into units and registers the document under a fresh
// identifier. Fails with a *docerr.DecodeError for unsupported or
// malformed input.
func (s *Store) Create(filename string, raw []byte) (Snapshot, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = "document"
	}
	if len(raw) == 0 {
		return Snapshot{}, &docerr.DecodeError{Filename: filename, Reason: "empty upload"}
	}

	codec, err := CodecFor(filename, raw)
	if err != nil {
		return Snapshot{}, &docerr.DecodeError{Filename: filename, Reason: err.Error()}
	}
	units, err := codec.Decode(raw)
	if err != nil {
		return Snapshot{}, &docerr.DecodeError{Filename: filename, Reason: "malformed " + string(codec.Format()), Err: err}
	}

	now := s.now()
	e := &entry{
		snap: Snapshot{
			Filename:  filename,
			Format:    codec.Format(),
			Units:     units,
			CreatedAt: now,
			UpdatedAt: now,
		},
		codec:  codec,
		source: slices.Clone(raw),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	for _, taken := s.docs[id]; taken; _, taken = s.docs[id] {
		id = s.newID()
	}
	e.snap.ID = id
	s.docs[id] = e
	return e.snap.Clone(), nil
}

// Get returns an isolated snapshot of the document.
func (s *Store) Get(id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[id]
	if !ok {
		return Snapshot{}, docerr.NotFound("document", id)
	}
	return e.snap.Clone(), nil
}

// ReplaceUnits atomically swaps the unit sequence and bumps the revision.
// The slice is copied; the caller keeps ownership of units.
func (s *Store) ReplaceUnits(id string, units []string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[id]
	if !ok {
		return Snapshot{}, docerr.NotFound("document", id)
	}
	next := &entry{snap: e.snap, codec: e.codec, source: e.source}
	next.snap.Units = slices.Clone(units)
	next.snap.Revision++
	next.snap.UpdatedAt = s.now()
	s.docs[id] = next
	return next.snap.Clone(), nil
}

// Render encodes units in the document's original format without
// storing them. Returns the encoded bytes and their MIME type.
func (s *Store) Render(id string, units []string) ([]byte, string, error) {
	s.mu.RLock()
	e, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, "", docerr.NotFound("document", id)
	}
	data, err := e.codec.Encode(e.source, units)
	if err != nil {
		return nil, "", fmt.Errorf("encoding %s: %w", e.snap.Format, err)
	}
	return data, e.codec.MIMEType(), nil
}

// Remove deletes the document.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return docerr.NotFound("document", id)
	}
	delete(s.docs, id)
	return nil
}

