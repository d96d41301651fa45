package docerr

import (
	"context"
	"errors"
)

// Code is the stable, transport-neutral name of an error kind.
type Code string

const (
	CodeDecode          Code = "decode_error"
	CodeNotFound        Code = "not_found"
	CodeStaleSuggestion Code = "stale_suggestion"
	CodeConflict        Code = "conflict"
	CodeEmptySelection  Code = "empty_selection"
	CodeBusy            Code = "busy"
	CodeInvalidArgument Code = "invalid_argument"
	CodeInternal        Code = "internal"
)

// CodeOf classifies err using sentinels only, never message text.
// A nil error classifies as CodeInternal; callers only classify failures.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeInternal
	case errors.Is(err, ErrDecode):
		return CodeDecode
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrStaleSuggestion):
		return CodeStaleSuggestion
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrEmptySelection):
		return CodeEmptySelection
	case errors.Is(err, ErrBusy), errors.Is(err, context.DeadlineExceeded):
		return CodeBusy
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	default:
		return CodeInternal
	}
}

// Retryable reports whether the same call may succeed if repeated unchanged.
func Retryable(err error) bool {
	return CodeOf(err) == CodeBusy
}

// Details extracts structured fields (offending ids, reasons) for
// transports to attach to a failure response.
func Details(err error) map[string]any {
	var (
		stale    *StaleSuggestionError
		notFound *NotFoundError
		decode   *DecodeError
		busy     *BusyError
	)
	switch {
	case errors.As(err, &stale):
		return map[string]any{"document_id": stale.DocumentID, "suggestion_ids": stale.IDs}
	case errors.As(err, &notFound):
		return map[string]any{"kind": notFound.Kind, "id": notFound.ID}
	case errors.As(err, &decode):
		return map[string]any{"filename": decode.Filename, "reason": decode.Reason}
	case errors.As(err, &busy):
		return map[string]any{"document_id": busy.DocumentID, "retryable": true}
	}
	return nil
}

// Failure is the transport-neutral rendering of an error.
type Failure struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// FailureOf renders err. Internal errors get a generic message so storage
// paths and driver text never reach callers.
func FailureOf(err error) Failure {
	code := CodeOf(err)
	if code == CodeInternal {
		return Failure{Code: code, Message: "internal error"}
	}
	return Failure{Code: code, Message: err.Error(), Details: Details(err)}
}
