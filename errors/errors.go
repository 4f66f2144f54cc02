package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which stage of the embedding pipeline produced the error.
type Phase string

const (
	PhaseConfig      Phase = "config"      // engine configuration
	PhaseCompile     Phase = "compile"     // module compilation/validation
	PhaseLink        Phase = "link"        // import resolution
	PhaseInstantiate Phase = "instantiate" // module instantiation
	PhaseCall        Phase = "call"        // function invocation
	PhaseWasi        Phase = "wasi"        // WASI wiring
	PhaseWat         Phase = "wat"         // text format parsing
	PhaseStore       Phase = "store"       // store-level operations
)

// Kind categorizes the error.
type Kind string

const (
	KindInvalidInput  Kind = "invalid_input"
	KindTypeMismatch  Kind = "type_mismatch"
	KindNotFound      Kind = "not_found"
	KindUnsupported   Kind = "unsupported"
	KindMissingImport Kind = "missing_import"
	KindShadowing     Kind = "shadowing"
	KindFuelDisabled  Kind = "fuel_disabled"
	KindClosed        Kind = "closed"
	KindInternal      Kind = "internal"
)

// Error is the structured error type used throughout wasmlite.
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	Subject string
	Detail  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Subject != "" {
		b.WriteString(": ")
		b.WriteString(e.Subject)
	}

	if e.Detail != "" {
		if e.Subject != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by Phase and Kind. A zero Phase or Kind in the target
// acts as a wildcard.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	return true
}

// Builder constructs errors incrementally.
type Builder struct {
	err Error
}

// New starts building an error with the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

// Subject names the thing the error is about (an import, export, file...).
func (b *Builder) Subject(s string) *Builder {
	b.err.Subject = s
	return b
}

// Detail adds a human-readable explanation.
func (b *Builder) Detail(format string, args ...any) *Builder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Cause attaches the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

// Compile wraps a compilation failure.
func Compile(subject string, cause error) *Error {
	return &Error{Phase: PhaseCompile, Kind: KindInvalidInput, Subject: subject, Cause: cause}
}

// NotFound reports a missing item in the given phase.
func NotFound(phase Phase, subject string) *Error {
	return &Error{Phase: phase, Kind: KindNotFound, Subject: subject}
}

// MissingImport reports an unresolved import during linking.
func MissingImport(module, name string) *Error {
	return &Error{Phase: PhaseLink, Kind: KindMissingImport, Subject: module + "::" + name}
}

// TypeMismatch reports an extern/value kind mismatch.
func TypeMismatch(phase Phase, subject, detail string) *Error {
	return &Error{Phase: phase, Kind: KindTypeMismatch, Subject: subject, Detail: detail}
}

// Unsupported reports an operation the underlying engine cannot perform.
func Unsupported(phase Phase, detail string) *Error {
	return &Error{Phase: phase, Kind: KindUnsupported, Detail: detail}
}

// FuelDisabled reports fuel operations on an engine without fuel metering.
func FuelDisabled() *Error {
	return &Error{Phase: PhaseStore, Kind: KindFuelDisabled, Detail: "fuel is not configured in this engine"}
}

// Closed reports use of a released handle.
func Closed(phase Phase, subject string) *Error {
	return &Error{Phase: phase, Kind: KindClosed, Subject: subject}
}
