package registry

import (
	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// Validator decides the fate of a pending request given a signed attestation.
type Validator struct {
	Trust    TrustRegistry
	Requests RequestStore
}

// Process checks, in order: the request exists and is pending, the
// signature is valid (abort otherwise), the provider is trusted, the TEE hash
// is trusted, and the attestation is bound to this request. The first failing
// authorization check decides the rejection reason. Rejections are returned
// as states, not errors.
func (v Validator) Process(env *host.Env, requestID uint64, attestation interfaces.Attestation, signature interfaces.Signature) (interfaces.RequestState, error) {
	req, err := v.Requests.Get(env, requestID)
	if err != nil {
		return interfaces.RequestState{}, err
	}
	if req == nil {
		return interfaces.RequestState{}, interfaces.ErrNotFound
	}
	if !req.State.IsPending() {
		return interfaces.RequestState{}, interfaces.ErrAlreadyProcessed
	}

	payload, err := attestation.Encode()
	if err != nil {
		return interfaces.RequestState{}, err
	}
	if err := env.VerifyEd25519(attestation.Provider, payload, signature); err != nil {
		return interfaces.RequestState{}, err
	}

	state, err := v.decide(env, requestID, &attestation)
	if err != nil {
		return interfaces.RequestState{}, err
	}

	if err := v.Requests.setState(env, req, state); err != nil {
		return interfaces.RequestState{}, err
	}

	env.Log().Debug("Verification request processed", "id", requestID, "state", state.String())
	return state, nil
}

func (v Validator) decide(env *host.Env, requestID uint64, attestation *interfaces.Attestation) (interfaces.RequestState, error) {
	trustedProvider, err := v.Trust.HasProvider(env, attestation.Provider)
	if err != nil {
		return interfaces.RequestState{}, err
	}
	if !trustedProvider {
		return interfaces.Rejected(interfaces.RejectUnauthorized), nil
	}

	trustedHash, err := v.Trust.HasTeeHash(env, attestation.TeeHash)
	if err != nil {
		return interfaces.RequestState{}, err
	}
	if !trustedHash {
		return interfaces.Rejected(interfaces.RejectInvalidTeeHash), nil
	}

	if attestation.RequestID != requestID {
		return interfaces.Rejected(interfaces.RejectInvalidAttestation), nil
	}

	return interfaces.Verified(), nil
}
