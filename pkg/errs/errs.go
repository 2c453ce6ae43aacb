// Package errs defines the error taxonomy from SPEC_FULL §7: named kinds with
// a fixed soft/hard propagation policy, built on github.com/pkg/errors so that
// wrapped causes keep their stack trace for debug logging.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the named error categories from SPEC_FULL §7.
type Kind string

const (
	KindConfig               Kind = "ConfigError"
	KindUpstreamFetch        Kind = "UpstreamFetchError"
	KindConversion           Kind = "ConversionError"
	KindAddressSpaceExhausted Kind = "AddressSpaceExhausted"
	KindStoreTransient       Kind = "StoreTransientError"
	KindStorePersistent      Kind = "StorePersistentError"
	KindCoordinationConflict Kind = "CoordinationConflict"
	KindWorkerTimeout        Kind = "WorkerTimeout"
)

// hardKinds terminate the owning process with a non-zero exit (SPEC_FULL §7
// propagation policy). Everything else is soft: counted and reported, never
// fatal to the worker or master process.
var hardKinds = map[Kind]bool{
	KindConfig: true,
}

// Error is a taxonomy-tagged error. Use New or Wrap to construct one; use
// As to recover the Kind from an arbitrary error chain.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a Kind-tagged error with no underlying cause.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap tags an existing error with a Kind, preserving it as the cause via
// github.com/pkg/errors so %+v printing retains a stack trace.
func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, cause: errors.Wrap(cause, detail)}
}

// As recovers a *Error from err's chain, mirroring errors.As without forcing
// every caller to import both packages.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsHard reports whether an error kind is fatal to its owning process.
// Unrecognized kinds (including plain, untagged errors) are treated as soft,
// matching SPEC_FULL §7: "a single bad record must never crash a worker."
func IsHard(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	return hardKinds[e.Kind]
}

// IsTransient reports whether the error kind represents a condition the
// caller should retry with backoff rather than give up on immediately.
func IsTransient(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	return e.Kind == KindUpstreamFetch || e.Kind == KindStoreTransient
}

// AsWorkUnitError reduces a soft error to the wire-level {kind, detail} pair
// reported in a work unit's errors[] (SPEC_FULL §6.1). Soft errors cross the
// worker->master boundary as plain data, never as Go error values.
func AsWorkUnitError(err error) (kind, detail string) {
	e, ok := As(err)
	if !ok {
		return "UnknownError", err.Error()
	}
	return string(e.Kind), e.Detail
}
