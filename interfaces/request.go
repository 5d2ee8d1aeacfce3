package interfaces

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// RequestStateKind is the lifecycle position of a verification request.
type RequestStateKind uint8

const (
	StatePending RequestStateKind = iota
	StateVerified
	StateRejected
)

// Rejection reasons recorded on requests that were processed with a negative verdict.
const (
	RejectUnauthorized       = "Unauthorized"
	RejectInvalidTeeHash     = "InvalidTeeHash"
	RejectInvalidAttestation = "InvalidAttestation"
)

func (k RequestStateKind) String() string {
	switch k {
	case StatePending:
		return "pending"
	case StateVerified:
		return "verified"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (k RequestStateKind) MarshalText() ([]byte, error) {
	if k > StateRejected {
		return nil, fmt.Errorf("unknown request state %d", k)
	}
	return []byte(k.String()), nil
}

func (k *RequestStateKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*k = StatePending
	case "verified":
		*k = StateVerified
	case "rejected":
		*k = StateRejected
	default:
		return fmt.Errorf("unknown request state %q", text)
	}
	return nil
}

// RequestState is Pending, Verified or Rejected with a reason. A rejection
// is a completed decision, not an error.
type RequestState struct {
	Kind   RequestStateKind `json:"kind"`
	Reason string           `json:"reason,omitempty"`
}

func Pending() RequestState  { return RequestState{Kind: StatePending} }
func Verified() RequestState { return RequestState{Kind: StateVerified} }

func Rejected(reason string) RequestState {
	return RequestState{Kind: StateRejected, Reason: reason}
}

func (s RequestState) IsPending() bool { return s.Kind == StatePending }

func (s RequestState) String() string {
	if s.Kind == StateRejected {
		return fmt.Sprintf("rejected(%s)", s.Reason)
	}
	return s.Kind.String()
}

// VerificationRequest tracks one attestation round for a piece of content.
type VerificationRequest struct {
	ID          uint64       `json:"id"`
	ContentHash common.Hash  `json:"content_hash"`
	State       RequestState `json:"state"`
}
