package registry

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// DefaultRequestTTL is how many clock ticks a submitted request stays
// retrievable: one day of wall clock seconds.
const DefaultRequestTTL uint64 = 24 * 60 * 60

const (
	keyRequestCounter = "request_counter"
	keyRequestPrefix  = "request/"
)

type requestEvent struct {
	ID          uint64                  `json:"id"`
	ContentHash *common.Hash            `json:"content_hash,omitempty"`
	State       interfaces.RequestState `json:"state"`
}

// RequestStore allocates verification requests and keeps them in temporary
// storage for TTL ticks. Ids start at 1 and are never reused.
type RequestStore struct {
	TTL uint64
}

func requestKey(id uint64) string {
	return keyRequestPrefix + strconv.FormatUint(id, 10)
}

func (s RequestStore) Submit(env *host.Env, contentHash common.Hash) (uint64, error) {
	var last uint64
	if _, err := env.Persistent().Get(keyRequestCounter, &last); err != nil {
		return 0, err
	}
	id := last + 1
	if err := env.Persistent().Set(keyRequestCounter, id); err != nil {
		return 0, err
	}

	req := interfaces.VerificationRequest{
		ID:          id,
		ContentHash: contentHash,
		State:       interfaces.Pending(),
	}
	if err := env.Temporary(s.TTL).Set(requestKey(id), &req); err != nil {
		return 0, err
	}

	env.Log().Debug("Verification request submitted", "id", id, "contentHash", contentHash.Hex())
	err := env.Publish(
		[]string{"registry", "RequestSubmitted", strconv.FormatUint(id, 10)},
		requestEvent{ID: id, ContentHash: &contentHash, State: req.State},
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns nil once the request has expired, even for a valid id.
func (s RequestStore) Get(env *host.Env, id uint64) (*interfaces.VerificationRequest, error) {
	var req interfaces.VerificationRequest
	ok, err := env.Temporary(s.TTL).Get(requestKey(id), &req)
	if err != nil || !ok {
		return nil, err
	}
	return &req, nil
}

// setState records the outcome of processing. The entry keeps its expiry.
func (s RequestStore) setState(env *host.Env, req *interfaces.VerificationRequest, state interfaces.RequestState) error {
	if !req.State.IsPending() {
		return fmt.Errorf("request %d: %w", req.ID, interfaces.ErrAlreadyProcessed)
	}
	req.State = state
	if err := env.Temporary(s.TTL).Set(requestKey(req.ID), req); err != nil {
		return err
	}
	return env.Publish(
		[]string{"registry", "RequestProcessed", strconv.FormatUint(req.ID, 10)},
		requestEvent{ID: req.ID, State: state},
	)
}
