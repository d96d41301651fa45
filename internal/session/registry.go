// Package session keeps per-document editing state across calls.
//
// A Registry maps document identifiers to Sessions. Each session owns its
// live suggestion generation and an operation lock that serializes analyze
// and apply on that document; calls on different documents never contend.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/HendryAvila/docsmith/internal/docerr"
	"github.com/HendryAvila/docsmith/internal/document"
)

// DefaultLockWait bounds how long an operation waits for a busy document.
const DefaultLockWait = 5 * time.Second

// Registry is the process-wide table of editing sessions.
type Registry struct {
	docs     *document.Store
	lockWait time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry over docs. A non-positive lockWait uses
// DefaultLockWait.
func NewRegistry(docs *document.Store, lockWait time.Duration) *Registry {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Registry{
		docs:     docs,
		lockWait: lockWait,
		sessions: make(map[string]*Session),
	}
}

// Documents returns the underlying document store.
func (r *Registry) Documents() *document.Store { return r.docs }

// Create decodes and stores a new document and opens its session.
func (r *Registry) Create(filename string, raw []byte) (document.Snapshot, error) {
	snap, err := r.docs.Create(filename, raw)
	if err != nil {
		return document.Snapshot{}, err
	}
	r.mu.Lock()
	r.sessions[snap.ID] = newSession(snap.ID, r.docs)
	r.mu.Unlock()
	slog.Debug("session opened", "document_id", snap.ID, "units", len(snap.Units))
	return snap, nil
}

// Lookup returns the session without taking its operation lock.
func (r *Registry) Lookup(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, docerr.NotFound("document", id)
	}
	return s, nil
}

// Acquire takes the operation lock of a document. It waits at most the
// registry's lock wait (or until ctx ends) and then fails with a
// BusyError. The returned release func must be called exactly once.
func (r *Registry) Acquire(ctx context.Context, id string) (*Session, func(), error) {
	s, err := r.Lookup(id)
	if err != nil {
		return nil, nil, err
	}

	select {
	case s.op <- struct{}{}:
	default:
		wctx, cancel := context.WithTimeout(ctx, r.lockWait)
		defer cancel()
		select {
		case s.op <- struct{}{}:
		case <-wctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, nil, fmt.Errorf("waiting for document %s: %w", id, ctx.Err())
			}
			return nil, nil, &docerr.BusyError{DocumentID: id}
		}
	}

	var once sync.Once
	release := func() { once.Do(func() { <-s.op }) }

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		release()
		return nil, nil, docerr.NotFound("document", id)
	}
	return s, release, nil
}

// Remove closes the session and drops its document. Caller must hold the
// session's operation lock, so no analyze or apply is mid-flight.
func (r *Registry) Remove(s *Session) error {
	s.mu.Lock()
	s.closed = true
	s.gen = nil
	s.mu.Unlock()

	r.mu.Lock()
	delete(r.sessions, s.id)
	r.mu.Unlock()

	if err := r.docs.Remove(s.id); err != nil {
		return fmt.Errorf("removing document: %w", err)
	}
	slog.Debug("session closed", "document_id", s.id)
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
