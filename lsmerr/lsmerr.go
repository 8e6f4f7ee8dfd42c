// Package lsmerr defines the error-kind taxonomy shared by every
// component of the storage engine (segidx, layer, stacked, cachepool,
// cred, switchfile). Every public entry point returns one of these
// kinds instead of an unwrapped error, so callers can branch on
// errors.Is / errors.As without knowing which package raised it.
package lsmerr

import (
	"fmt"

	"tlog.app/go/errors"
)

// Kind classifies why an operation failed. It is not a type name, only
// a coarse taxonomy: Configuration, IO, Format, State, Exhaustion, Auth.
type Kind int

const (
	_ Kind = iota
	KindIO
	KindFormat
	KindState
	KindConfiguration
	KindExhaustion
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFormat:
		return "format"
	case KindState:
		return "state"
	case KindConfiguration:
		return "configuration"
	case KindExhaustion:
		return "exhaustion"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// wrapped is a Kind-tagged error. Its Unwrap() exposes the cause so it
// composes with errors.Is/errors.As from tlog.app/go/errors and stdlib.
type wrapped struct {
	kind Kind
	err  error
}

func (e *wrapped) Error() string { return e.kind.String() + ": " + e.err.Error() }
func (e *wrapped) Unwrap() error { return e.err }
func (e *wrapped) Kind() Kind    { return e.kind }

// New builds a new error of the given kind with a formatted message.
func New(k Kind, msg string, args ...interface{}) error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &wrapped{kind: k, err: errors.New(msg)}
}

// Wrap attaches a Kind to an existing error, keeping it as the cause.
func Wrap(k Kind, err error, msg string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &wrapped{kind: k, err: errors.Wrap(err, msg)}
}

// Is reports whether err (or anything it wraps) carries Kind k.
func Is(err error, k Kind) bool {
	for err != nil {
		if w, ok := err.(*wrapped); ok && w.kind == k {
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

var (
	// ErrNotSupported is returned by operations invalid in the current
	// layer state (commit/close_seal on a RO view, double close_seal).
	ErrNotSupported = New(KindState, "operation not supported in this state")
	// ErrClosed marks operations against an already-closed file/store.
	ErrClosed = New(KindState, "already closed")
	// ErrOverflow marks a segment whose offset+length wraps past the
	// range an int64 byte offset can represent.
	ErrOverflow = New(KindFormat, "segment offset+length overflows")
)
