package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidArgument
	KindConflict
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not found"
	default:
		return "internal error"
	}
}

// Error is returned by every VillaService operation.
// Fields holds per-field validation messages keyed by JSON name.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so errors.Is(err, ErrNotFound) works
// for any *Error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInternal        = &Error{Kind: KindInternal}
)

// ErrIDAssigned is wrapped in the invalid-argument error returned when a
// create request carries its own id.
var ErrIDAssigned = errors.New("id must not be set when creating a villa")

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func invalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

func notFound(id uint) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("villa %d not found", id)}
}

func conflict(name string) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf("villa %q already exists", name)}
}

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}
