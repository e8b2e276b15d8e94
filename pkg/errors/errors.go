package errors

import (
	"fmt"
)

// Kind classifies a CoreError by the taxonomy in the error handling design:
// transport-transient, schema/parse, commit-aborted, adapter-degraded,
// sink-isolated, and invariant-violation. Kinds drive recovery behavior,
// not HTTP status codes.
type Kind int

const (
	// KindTransient covers timeouts, 5xx, 429 from a provider. Swallowed at
	// the adapter; surfaced as an empty result, never propagated.
	KindTransient Kind = iota
	// KindSchema covers a provider response that fails to parse into the
	// canonical article shape. The offending article is dropped.
	KindSchema
	// KindCommitAborted covers an embedder/reranker failure during a C8
	// commit. The batch is rejected; articles stay in the seen-set and are
	// not retried.
	KindCommitAborted
	// KindAdapterDegraded covers a failing LLM verdict adapter
	// (sentiment/technical/risk/decision). The assembler substitutes the
	// heuristic fallback instead of aborting.
	KindAdapterDegraded
	// KindSinkIsolated covers a subscriber sink write failure. Isolated to
	// that sink; delivery to peers continues.
	KindSinkIsolated
	// KindInvariantViolation covers I1-I4 breaches. These are unreachable
	// by construction; callers should treat them as fatal.
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindSchema:
		return "schema"
	case KindCommitAborted:
		return "commit_aborted"
	case KindAdapterDegraded:
		return "adapter_degraded"
	case KindSinkIsolated:
		return "sink_isolated"
	case KindInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// CoreError wraps an error with a Kind and free-form context, the same
// message/details/wrapped-err shape used across this codebase for every
// error boundary.
type CoreError struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

func Transient(message string, err error) *CoreError {
	return &CoreError{Kind: KindTransient, Message: message, Err: err}
}

func Schema(message string, err error) *CoreError {
	return &CoreError{Kind: KindSchema, Message: message, Err: err}
}

func CommitAborted(message string, err error) *CoreError {
	return &CoreError{Kind: KindCommitAborted, Message: message, Err: err}
}

func AdapterDegraded(message string, err error) *CoreError {
	return &CoreError{Kind: KindAdapterDegraded, Message: message, Err: err}
}

func SinkIsolated(message string, err error) *CoreError {
	return &CoreError{Kind: KindSinkIsolated, Message: message, Err: err}
}

// InvariantViolation panics. I1-I4 violations are unreachable by
// construction; the only correct recovery is to fail loudly.
func InvariantViolation(message string, details string) {
	panic(&CoreError{Kind: KindInvariantViolation, Message: message, Details: details})
}

// Is reports whether err is a *CoreError of the given kind.
func Is(err error, kind Kind) bool {
	ce, ok := AsCoreError(err)
	return ok && ce.Kind == kind
}

// AsCoreError unwraps err looking for a *CoreError.
func AsCoreError(err error) (*CoreError, bool) {
	for err != nil {
		if ce, ok := err.(*CoreError); ok {
			return ce, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return nil, false
}
