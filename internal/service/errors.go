package service

import (
	"errors"
	"fmt"

	"salesops-data/internal/repository"
	"salesops-data/internal/sanitize"
)

// Kind closed set of failure categories surfaced to callers.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidState
	KindValidation
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	}
	return "internal"
}

// Error service-level failure. ExistingID is set for conflicts that point at
// the row that already exists.
type Error struct {
	Kind       Kind
	Message    string
	ExistingID string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func notFound(msg string) *Error     { return newError(KindNotFound, msg) }
func forbidden(msg string) *Error    { return newError(KindForbidden, msg) }
func invalidState(msg string) *Error { return newError(KindInvalidState, msg) }
func validation(msg string) *Error   { return newError(KindValidation, msg) }

func conflict(msg, existingID string) *Error {
	return &Error{Kind: KindConflict, Message: msg, ExistingID: existingID}
}

// KindOf reports the Kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// wrapRepoError maps repository sentinels onto service kinds. msg describes the
// failed operation; notFoundMsg is used for ErrNotFound.
func wrapRepoError(err error, msg, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: notFoundMsg, Err: err}
	case errors.Is(err, repository.ErrTransient):
		return &Error{Kind: KindTransient, Message: "Service temporarily unavailable, please retry", Err: err}
	case errors.Is(err, repository.ErrDuplicate):
		return &Error{Kind: KindConflict, Message: msg + ": already exists", Err: err}
	case errors.Is(err, sanitize.ErrMissingField):
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}
