// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package errors provides the typed errors shared by every dunerun stage.
// A Kind tells the front-end which stage failed; attributes carry the
// details (step, exit status, path) without string parsing.
package errors

import (
	"errors"
	"fmt"
)

// Kind defines the category of error.
type Kind int

const (
	KindUnknown Kind = iota
	KindInternal
	// KindConfig is a bad or missing directive catalog, tool config or selection.
	KindConfig
	// KindIO is a file read, copy or write failure.
	KindIO
	// KindBackup means the pre-write backup could not be made; nothing was written.
	KindBackup
	// KindBuild is a clean, configure or compile failure.
	KindBuild
	// KindLaunch means a supervised child could not be started.
	KindLaunch
	// KindRuntime means the primary simulation exited non-zero.
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindConfig:
		return "config"
	case KindIO:
		return "io"
	case KindBackup:
		return "backup"
	case KindBuild:
		return "build"
	case KindLaunch:
		return "launch"
	case KindRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Well-known attribute keys.
const (
	AttrStep     = "step"
	AttrExitCode = "exit_code"
	AttrPath     = "path"
	AttrRole     = "role"
)

// Error represents a structured error in dunerun.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Attributes map[string]any
}

func (e *Error) Error() string {
	if e.Underlying == nil {
		return e.Message
	}
	return e.Message + ": " + e.Underlying.Error()
}

func (e *Error) Unwrap() error { return e.Underlying }

// New creates a new Error of the specified kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf is New with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap records err as the cause of a new Error. A nil err stays nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Underlying: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	return Wrap(err, kind, fmt.Sprintf(format, args...))
}

// Attr sets key on the outermost *Error of err. Plain errors are wrapped as
// KindInternal first.
func Attr(err error, key string, val any) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindInternal, Message: err.Error(), Underlying: err}
	}
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = val
	return e
}

// chain calls fn for every *Error reachable through Underlying, outermost
// first, until fn returns false.
func chain(err error, fn func(*Error) bool) {
	var e *Error
	for errors.As(err, &e) {
		if !fn(e) {
			return
		}
		err = e.Underlying
	}
}

// GetKind returns the Kind of the outermost *Error in the chain, or KindUnknown.
func GetKind(err error) Kind {
	kind := KindUnknown
	chain(err, func(e *Error) bool {
		kind = e.Kind
		return false
	})
	return kind
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	found := false
	chain(err, func(e *Error) bool {
		found = e.Kind == kind
		return !found
	})
	return found
}

// GetAttributes merges the attributes of the whole chain. Outer values win.
func GetAttributes(err error) map[string]any {
	attrs := make(map[string]any)
	chain(err, func(e *Error) bool {
		for k, v := range e.Attributes {
			if _, ok := attrs[k]; !ok {
				attrs[k] = v
			}
		}
		return true
	})
	return attrs
}

// As is errors.As, re-exported so callers need a single errors import.
func As(err error, target any) bool {
	return errors.As(err, target)
}
