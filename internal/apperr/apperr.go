// Package apperr defines the error taxonomy shared by the HTTP API and the
// pipeline. Values are ordinary sentinel errors; call sites wrap them with
// eris.Wrap for stack traces and compare with errors.Is/apperr.Is.
package apperr

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Kind is one of the eight error kinds from the error handling design.
type Kind int

const (
	KindValidation Kind = iota
	KindAuth
	KindAuthorization
	KindQuotaExceeded
	KindNotFound
	KindUpstream
	KindTransient
	KindPermanent
)

// kindError binds a Kind to a message so errors.Is can match on Kind alone.
type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

// Is lets errors.Is(err, apperr.Validation) etc. match any wrapped instance
// of the same kind, regardless of message.
func (e *kindError) Is(target error) bool {
	other, ok := target.(*kindError)
	return ok && other.kind == e.kind
}

// Sentinel base errors for each kind. Wrap these with a specific message
// using New/Newf, or wrap an upstream error with Wrap.
var (
	Validation    = &kindError{kind: KindValidation, msg: "validation error"}
	Auth          = &kindError{kind: KindAuth, msg: "authentication error"}
	Authorization = &kindError{kind: KindAuthorization, msg: "authorization error"}
	QuotaExceeded = &kindError{kind: KindQuotaExceeded, msg: "quota exceeded"}
	NotFound      = &kindError{kind: KindNotFound, msg: "not found"}
	Upstream      = &kindError{kind: KindUpstream, msg: "upstream error"}
	Transient     = &kindError{kind: KindTransient, msg: "transient error"}
	Permanent     = &kindError{kind: KindPermanent, msg: "permanent error"}
)

// New creates a new error of the given kind carrying msg, wrapped with a
// stack trace.
func New(kind Kind, msg string) error {
	return eris.Wrap(sentinelFor(kind), msg)
}

// Newf is New with fmt-style formatting.
func Newf(kind Kind, format string, args ...any) error {
	return eris.Wrapf(sentinelFor(kind), format, args...)
}

// Wrap attaches kind to an existing error (e.g. from a downstream client),
// preserving err in the chain so errors.Unwrap still reaches it.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return eris.Wrap(&wrappedKind{kind: kind, err: err}, msg)
}

type wrappedKind struct {
	kind Kind
	err  error
}

func (w *wrappedKind) Error() string { return w.err.Error() }
func (w *wrappedKind) Unwrap() error { return w.err }
func (w *wrappedKind) Is(target error) bool {
	other, ok := target.(*kindError)
	return ok && other.kind == w.kind
}

func sentinelFor(kind Kind) error {
	switch kind {
	case KindValidation:
		return Validation
	case KindAuth:
		return Auth
	case KindAuthorization:
		return Authorization
	case KindQuotaExceeded:
		return QuotaExceeded
	case KindNotFound:
		return NotFound
	case KindUpstream:
		return Upstream
	case KindTransient:
		return Transient
	case KindPermanent:
		return Permanent
	default:
		return errors.New("unknown error kind")
	}
}

// Is reports whether err (or anything it wraps) matches kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, sentinelFor(kind))
}
