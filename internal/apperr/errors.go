// Package apperr classifies failures so the pipeline can decide between
// skipping an item and aborting the run.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure class of an error.
type Kind string

const (
	KindUnknown     Kind = "UNKNOWN"
	KindUpstream    Kind = "UPSTREAM"    // explicit error payload from search/detail
	KindTransport   Kind = "TRANSPORT"   // network failure, timeout, undecodable body
	KindPersistence Kind = "PERSISTENCE" // seen log or lead store write/read
	KindConfig      Kind = "CONFIG"      // malformed static configuration, always fatal
)

// Error wraps an underlying error with its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error. A nil err still produces a non-nil error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Upstream(op string, err error) error    { return New(KindUpstream, op, err) }
func Transport(op string, err error) error   { return New(KindTransport, op, err) }
func Persistence(op string, err error) error { return New(KindPersistence, op, err) }
func Config(op string, err error) error      { return New(KindConfig, op, err) }

// Configf builds a Config error from a format string.
func Configf(op, format string, args ...any) error {
	return New(KindConfig, op, fmt.Errorf(format, args...))
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Fatal reports whether err must stop the whole run.
func Fatal(err error) bool {
	switch KindOf(err) {
	case KindConfig, KindUnknown:
		return err != nil
	}
	return false
}
