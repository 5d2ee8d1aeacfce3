package host

import (
	"errors"
	"fmt"
)

// ErrAborted matches every AbortError. An aborted call leaves no state behind
// and has no return value.
var ErrAborted = errors.New("operation aborted")

var (
	// ErrContractNotFound is a transport failure: nothing is deployed at the address.
	ErrContractNotFound = errors.New("contract not found")

	// ErrFunctionNotFound is a transport failure: the contract has no such function.
	ErrFunctionNotFound = errors.New("function not found")

	// ErrDecode is a transport failure: call arguments or results had the wrong shape.
	ErrDecode = errors.New("could not decode call")

	ErrAlreadyDeployed = errors.New("contract already deployed")
	ErrCallDepth       = errors.New("maximum call depth exceeded")
)

// AbortError is a protocol violation (missing authorization, invalid
// signature, failed sub-call). It unwinds the whole top-level call.
type AbortError struct {
	Reason string
	Err    error
}

func (e *AbortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aborted: %s: %v", e.Reason, e.Err)
	}
	return "aborted: " + e.Reason
}

func (e *AbortError) Unwrap() error { return e.Err }

func (e *AbortError) Is(target error) bool { return target == ErrAborted }

// Abort builds an AbortError with a formatted reason.
func Abort(format string, args ...any) error {
	return &AbortError{Reason: fmt.Sprintf(format, args...)}
}

// IsTransportError reports whether err means the call could not be
// dispatched or decoded, as opposed to the callee returning an error.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrFunctionNotFound) ||
		errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrCallDepth)
}
