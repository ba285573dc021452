// Package errs implements the structured, linkable error chain used
// throughout zsql: every error carries a message and an optional link to a
// deeper cause, from outermost to innermost.
package errs

import "fmt"

// Kind classifies an Error without needing a distinct Go type per kind.
type Kind int

const (
	// KindSystem is a syscall-level failure (I/O, permission, OOM).
	KindSystem Kind = iota
	// KindDatabase is a failure reported by the SQL engine.
	KindDatabase
	// KindSchema means the database's schema is newer than this build
	// knows how to handle.
	KindSchema
	// KindUser is a usage error: missing query, conflicting flags.
	KindUser
	// KindNotFound means a search produced zero rows.
	KindNotFound
	// KindOOM marks the static allocation-free sentinel.
	KindOOM
)

// Error is one link in the chain. Cause is the next (deeper) link, or nil
// at the innermost cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   *Error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap lets errors.Is/errors.As walk the chain via the standard library.
func (e *Error) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// outOfMemory is the statically allocated OOM sentinel. It is reachable
// only through OutOfMemory(); wrap never returns it, since a failed
// allocation in Go panics instead of returning. Every caller shares this
// one pointer.
var outOfMemory = &Error{Kind: KindOOM, Message: "not enough memory to allocate error"}

// OutOfMemory returns the static OOM sentinel.
func OutOfMemory() *Error { return outOfMemory }

// FromSystem wraps a Go error representing a syscall failure.
func FromSystem(err error, cause *Error) *Error {
	if err == nil {
		return cause
	}
	return wrap(KindSystem, err.Error(), cause)
}

// FromDatabase wraps the SQL engine's reported failure message.
func FromDatabase(message string, cause *Error) *Error {
	return wrap(KindDatabase, message, cause)
}

// FromText wraps a literal message, e.g. a user or not-found error.
func FromText(kind Kind, message string, cause *Error) *Error {
	return wrap(kind, message, cause)
}

// wrap applies the de-duplication rule from spec.md §4.5: if the new
// message is identical to the cause's message, the wrapper is skipped so
// the same underlying message (e.g. one produced by a failing step, and
// again by a subsequent failing finalize) is not printed twice.
func wrap(kind Kind, message string, cause *Error) *Error {
	if cause != nil && cause.Message == message {
		return cause
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Print walks the chain outermost-to-innermost, writing argv0: msg on the
// first line and one tab-indented line per subsequent cause, matching
// spec.md §6's stderr contract.
func Print(w interface{ Write([]byte) (int, error) }, argv0 string, err *Error) {
	fmt.Fprintf(w, "%s: %s\n", argv0, err.Message)
	for cause := err.Cause; cause != nil; cause = cause.Cause {
		fmt.Fprintf(w, "\t%s\n", cause.Message)
	}
}
