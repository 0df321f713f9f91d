package order

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors, one per error kind. Typed errors below match their
// sentinel through errors.Is.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("order not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrTerminal               = errors.New("order is in a terminal status")
	ErrInvalidQueryParameter  = errors.New("invalid query parameter")
	ErrConcurrentModification = errors.New("order was modified concurrently")
	ErrStoreUnavailable       = errors.New("order store unavailable")
	ErrDuplicateNumber        = errors.New("order number already exists")
)

// Kind is the structured error category reported to the boundary layer.
type Kind string

const (
	KindValidation             Kind = "VALIDATION_ERROR"
	KindNotFound               Kind = "NOT_FOUND"
	KindInvalidTransition      Kind = "INVALID_TRANSITION"
	KindIllegalState           Kind = "ILLEGAL_STATE"
	KindInvalidQueryParameter  Kind = "INVALID_QUERY_PARAMETER"
	KindConcurrentModification Kind = "CONCURRENT_MODIFICATION"
	KindStoreUnavailable       Kind = "STORE_UNAVAILABLE"
	KindInternal               Kind = "INTERNAL"
)

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrTerminal):
		return KindIllegalState
	case errors.Is(err, ErrInvalidQueryParameter):
		return KindInvalidQueryParameter
	case errors.Is(err, ErrConcurrentModification), errors.Is(err, ErrDuplicateNumber):
		return KindConcurrentModification
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}

// ValidationError lists every field constraint violated by an input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransitionError indicates a rejected checked status transition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.From.Terminal() {
		return fmt.Sprintf("cannot change status of order in final state %s", e.From)
	}
	if !e.To.Valid() {
		return fmt.Sprintf("unknown status %q", string(e.To))
	}
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// QueryParameterError indicates an unrecognized search, sort or paging value.
type QueryParameterError struct {
	Param string
	Value string
}

func (e *QueryParameterError) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %s", e.Value, e.Param)
}

func (e *QueryParameterError) Is(target error) bool { return target == ErrInvalidQueryParameter }

// StoreError wraps a transport or storage failure. It is always retryable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("order store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }
