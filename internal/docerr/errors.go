// Package docerr defines the error taxonomy shared by the document engine
// and both transports.
//
// Every failure the engine can report is one of a small set of sentinels.
// Typed errors carry the offending ids and reasons, and match their
// sentinel through errors.Is, so callers can branch on the kind while
// still rendering precise messages.
package docerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecode indicates the uploaded bytes are not a well-formed document
	// of a supported format.
	ErrDecode = errors.New("malformed document")

	// ErrNotFound indicates an unknown document or artifact handle.
	ErrNotFound = errors.New("not found")

	// ErrStaleSuggestion indicates a suggestion id that is not part of the
	// document's live generation.
	ErrStaleSuggestion = errors.New("stale suggestion")

	// ErrConflict indicates an accepted suggestion that could not be applied
	// because its span overlaps another edit or is no longer present.
	ErrConflict = errors.New("conflicting suggestion")

	// ErrEmptySelection indicates an apply call with no suggestion ids.
	ErrEmptySelection = errors.New("empty selection: no suggestion ids to apply")

	// ErrBusy indicates another analyze or apply is in flight for the same
	// document. Retryable.
	ErrBusy = errors.New("document busy")

	// ErrInvalidArgument indicates malformed transport input (bad base64,
	// missing field, oversize upload).
	ErrInvalidArgument = errors.New("invalid argument")
)

// DecodeError reports why an upload could not be decoded.
type DecodeError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %q: %s", e.Filename, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error        { return e.Err }
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// NotFoundError names the kind of entity that was missing.
type NotFoundError struct {
	Kind string // "document" or "artifact"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StaleSuggestionError lists every requested id that is not in the live
// generation of the document.
type StaleSuggestionError struct {
	DocumentID string
	IDs        []string
}

func (e *StaleSuggestionError) Error() string {
	return fmt.Sprintf("stale suggestion ids for document %q: %s (run analyze again)",
		e.DocumentID, strings.Join(e.IDs, ", "))
}

func (e *StaleSuggestionError) Is(target error) bool { return target == ErrStaleSuggestion }

// ConflictError is reported per suggestion inside an apply result. It is
// never the failure of the apply call itself.
type ConflictError struct {
	SuggestionID string `json:"suggestion_id"`
	UnitIndex    int    `json:"unit_index"`
	Reason       string `json:"reason"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("suggestion %s on unit %d not applied: %s", e.SuggestionID, e.UnitIndex, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// BusyError reports lock contention on a document.
type BusyError struct {
	DocumentID string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("document %q is busy with another operation, retry shortly", e.DocumentID)
}

func (e *BusyError) Is(target error) bool { return target == ErrBusy }

// NotFound is a shorthand for a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Invalid wraps ErrInvalidArgument with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
