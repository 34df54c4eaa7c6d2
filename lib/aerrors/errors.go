// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package aerrors implements the single typed error used throughout this
// module: a Kind tag for callers that need to branch on error class, plus a
// LIFO stack of human-readable context strings accumulated as the error
// propagates out through named operations.
package aerrors

import (
	"fmt"
	"strings"
)

// Kind classifies the failure that produced an *Error.
type Kind int

const (
	// KindIo covers any underlying filesystem, process, or socket failure.
	KindIo Kind = iota
	// KindParse covers malformed TOML/JSON/dependency-string/hex input.
	KindParse
	// KindCorruptObject is an ODB object whose header magic doesn't match.
	KindCorruptObject
	// KindUnsupportedVersion is an ODB object header with an unknown version byte.
	KindUnsupportedVersion
	// KindUnknownEnum is an ODB object header with an unrecognized type or compression code.
	KindUnknownEnum
	// KindOIDMismatch is a prehashed insert whose received bytes hash to a different OID.
	KindOIDMismatch
	// KindNotFound is an ODB read of an absent OID.
	KindNotFound
	// KindArchitectureUnsupported is a formula whose target architecture it cannot run on.
	KindArchitectureUnsupported
	// KindDependencyUnresolved is a dependency string with no resolvable OID.
	KindDependencyUnresolved
	// KindStepFailed is a build step that exited non-zero.
	KindStepFailed
	// KindAssertion is a programmer-contract violation.
	KindAssertion
	// KindDownload is a non-2xx status or transport failure while fetching a source.
	KindDownload
)

func (k Kind) String() string {
	switch k {
	case KindIo:
		return "io"
	case KindParse:
		return "parse"
	case KindCorruptObject:
		return "corrupt object"
	case KindUnsupportedVersion:
		return "unsupported version"
	case KindUnknownEnum:
		return "unknown enum"
	case KindOIDMismatch:
		return "oid mismatch"
	case KindNotFound:
		return "not found"
	case KindArchitectureUnsupported:
		return "architecture unsupported"
	case KindDependencyUnresolved:
		return "dependency unresolved"
	case KindStepFailed:
		return "step failed"
	case KindAssertion:
		return "assertion"
	case KindDownload:
		return "download"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ArchitectureUnsupported is the Detail of a KindArchitectureUnsupported error.
type ArchitectureUnsupported struct {
	Want      string
	Supported string
}

// DependencyUnresolved is the Detail of a KindDependencyUnresolved error.
type DependencyUnresolved struct {
	Name    string
	Version string
	Pkgver  string
}

// StepFailed is the Detail of a KindStepFailed error.
type StepFailed struct {
	Name       string
	ExitStatus int
}

// OIDMismatch is the Detail of a KindOIDMismatch error.
type OIDMismatch struct {
	Expected string
	Received string
}

// Error is the one error type this module uses. It carries a Kind for
// callers that branch on error class, and a LIFO stack of context strings:
// the first entry added is the innermost (closest to the root cause), and
// each call to Context prepends a new outer layer.
type Error struct {
	kind    Kind
	context []string
	cause   error

	// Detail holds one of ArchitectureUnsupported, DependencyUnresolved,
	// StepFailed, or OIDMismatch, matching kind; nil for kinds that carry
	// no structured payload.
	Detail any
}

var _ error = (*Error)(nil)

// New creates a fresh *Error of the given kind with a single message, no
// underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, context: []string{msg}}
}

// Wrap attaches kind and an initial context message to an existing error. If
// cause is already an *Error, its kind and context are absorbed rather than
// nested, since there's only ever one Error in the chain.
func Wrap(cause error, kind Kind, msg string) *Error {
	if inner, ok := cause.(*Error); ok {
		ctx := append(append([]string{}, inner.context...), msg)
		return &Error{kind: inner.kind, context: ctx, cause: inner.cause, Detail: inner.Detail}
	}
	return &Error{kind: kind, context: []string{msg}, cause: cause}
}

// NewArchitectureUnsupported builds a KindArchitectureUnsupported error.
func NewArchitectureUnsupported(want, supported string) *Error {
	e := New(KindArchitectureUnsupported, fmt.Sprintf("architecture %q is not supported by %q", want, supported))
	e.Detail = ArchitectureUnsupported{Want: want, Supported: supported}
	return e
}

// NewDependencyUnresolved builds a KindDependencyUnresolved error.
func NewDependencyUnresolved(name, version, pkgver string) *Error {
	e := New(KindDependencyUnresolved, fmt.Sprintf("could not resolve dependency %s@%s/%s", name, version, pkgver))
	e.Detail = DependencyUnresolved{Name: name, Version: version, Pkgver: pkgver}
	return e
}

// NewStepFailed builds a KindStepFailed error.
func NewStepFailed(name string, exitStatus int) *Error {
	e := New(KindStepFailed, fmt.Sprintf("step %q failed with exit status %d", name, exitStatus))
	e.Detail = StepFailed{Name: name, ExitStatus: exitStatus}
	return e
}

// NewOIDMismatch builds a KindOIDMismatch error.
func NewOIDMismatch(expected, received string) *Error {
	e := New(KindOIDMismatch, fmt.Sprintf("expected object id %s, got %s", expected, received))
	e.Detail = OIDMismatch{Expected: expected, Received: received}
	return e
}

// Context pushes a new outer context message onto err, returning the same
// *Error (for chaining: `return err.Context("reading formula")`). If err is
// nil, Context returns nil so call sites can use it unconditionally.
func (e *Error) Context(msg string) *Error {
	if e == nil {
		return nil
	}
	e.context = append(e.context, msg)
	return e
}

// Contextf is Context with fmt.Sprintf-style formatting.
func (e *Error) Contextf(format string, args ...any) *Error {
	return e.Context(fmt.Sprintf(format, args...))
}

// Kind returns the classification of this error.
func (e *Error) Kind() Kind {
	return e.kind
}

// Unwrap exposes the underlying cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Error implements the error interface, rendering the context stack
// outermost-first on a single line, joined by ": ", terminated by the root
// cause (if any).
func (e *Error) Error() string {
	var buf strings.Builder
	for i := len(e.context) - 1; i >= 0; i-- {
		if buf.Len() > 0 {
			buf.WriteString(": ")
		}
		buf.WriteString(e.context[i])
	}
	if e.cause != nil {
		if buf.Len() > 0 {
			buf.WriteString(": ")
		}
		buf.WriteString(e.cause.Error())
	}
	return buf.String()
}

// Render renders the cause chain top-down with indentation, one context
// frame per line, for CLI error output.
func (e *Error) Render() string {
	var buf strings.Builder
	indent := ""
	for i := len(e.context) - 1; i >= 0; i-- {
		buf.WriteString(indent)
		buf.WriteString(e.context[i])
		buf.WriteByte('\n')
		indent += "  "
	}
	if e.cause != nil {
		buf.WriteString(indent)
		buf.WriteString(e.cause.Error())
		buf.WriteByte('\n')
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if as(err, &e) {
		return e.kind, true
	}
	return 0, false
}

// as is a tiny local errors.As to avoid importing "errors" just for this.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
