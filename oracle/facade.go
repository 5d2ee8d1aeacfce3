package oracle

import (
	"errors"
	"strconv"

	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/ruteri/tee-provenance-registry/provenance"
	"github.com/ruteri/tee-provenance-registry/registry"
)

const (
	keyRegistry      = "registry"
	keyProvenance    = "provenance"
	keyAdmin         = "admin"
	keyRelayerPrefix = "relayer/"
)

// Config is the oracle's wiring, fixed at initialization.
type Config struct {
	Registry   interfaces.Principal `json:"registry"`
	Provenance interfaces.Principal `json:"provenance"`
	Admin      interfaces.Principal `json:"admin"`
}

// Facade is the oracle: a thin entry point that checks TEE hashes and one-shot
// attestations against the registry, and turns verified requests into
// certificates.
type Facade struct{}

func (Facade) Initialize(env *host.Env, cfg Config) error {
	store := env.Persistent()
	initialized, err := store.Has(keyRegistry)
	if err != nil {
		return err
	}
	if initialized {
		return interfaces.ErrAlreadyInitialized
	}
	if err := store.Set(keyRegistry, cfg.Registry); err != nil {
		return err
	}
	if err := store.Set(keyProvenance, cfg.Provenance); err != nil {
		return err
	}
	return store.Set(keyAdmin, cfg.Admin)
}

// Config returns nil before initialization.
func (Facade) Config(env *host.Env) (*Config, error) {
	store := env.Persistent()
	var cfg Config
	ok, err := store.Get(keyRegistry, &cfg.Registry)
	if err != nil || !ok {
		return nil, err
	}
	if _, err := store.Get(keyProvenance, &cfg.Provenance); err != nil {
		return nil, err
	}
	if _, err := store.Get(keyAdmin, &cfg.Admin); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// VerifyTeeHash asks the registry whether hash is trusted. A registry call
// that cannot be completed is reported as ErrRegistryCallFailed, never as
// an untrusted hash.
func (f Facade) VerifyTeeHash(env *host.Env, hash interfaces.TeeHash) error {
	cfg, err := f.Config(env)
	if err != nil {
		return err
	}
	if cfg == nil {
		return interfaces.ErrRegistryNotConfigured
	}

	value, appErr, callErr := env.TryInvoke(cfg.Registry, registry.FnHasTeeHash, hash)
	if callErr != nil || appErr != nil {
		env.Log().Debug("Registry call failed", "appErr", appErr, "err", callErr)
		return interfaces.ErrRegistryCallFailed
	}
	trusted, err := host.Result[bool](value)
	if err != nil {
		env.Log().Debug("Registry call failed", "err", err)
		return interfaces.ErrRegistryCallFailed
	}
	if !trusted {
		return interfaces.ErrTeeNotVerified
	}
	return nil
}

// VerifyAttestation checks that provider and hash are jointly trusted, then
// verifies the signature over payload. A bad signature aborts.
func (f Facade) VerifyAttestation(env *host.Env, provider interfaces.PublicKey, hash interfaces.TeeHash, payload []byte, signature interfaces.Signature) error {
	cfg, err := f.Config(env)
	if err != nil {
		return err
	}
	if cfg == nil {
		return interfaces.ErrNotInitialized
	}

	value, err := env.Invoke(cfg.Registry, registry.FnIsVerified, hash, provider)
	if err != nil {
		return err
	}
	verified, err := host.Result[bool](value)
	if err != nil {
		return &host.AbortError{Reason: "registry returned malformed result", Err: err}
	}
	if !verified {
		return interfaces.ErrUnauthorizedSigner
	}

	return env.VerifyEd25519(provider, payload, signature)
}

func (f Facade) requireAdmin(env *host.Env) error {
	cfg, err := f.Config(env)
	if err != nil {
		return err
	}
	if cfg == nil {
		return interfaces.ErrNotInitialized
	}
	return env.RequireAuth(cfg.Admin)
}

func (f Facade) AddProvider(env *host.Env, relayer interfaces.Principal) error {
	if err := f.requireAdmin(env); err != nil {
		return err
	}
	if err := env.Persistent().Set(keyRelayerPrefix+relayer.Hex(), true); err != nil {
		return err
	}
	return env.Publish([]string{"oracle", "ProviderApproved", relayer.Hex()}, map[string]any{"provider": relayer})
}

func (f Facade) RemoveProvider(env *host.Env, relayer interfaces.Principal) error {
	if err := f.requireAdmin(env); err != nil {
		return err
	}
	env.Persistent().Remove(keyRelayerPrefix + relayer.Hex())
	return env.Publish([]string{"oracle", "ProviderRevoked", relayer.Hex()}, map[string]any{"provider": relayer})
}

func (Facade) IsProvider(env *host.Env, relayer interfaces.Principal) (bool, error) {
	return env.Persistent().Has(keyRelayerPrefix + relayer.Hex())
}

// VerifyAndMint certifies the content of a verified request on behalf of
// owner. The relayer must be approved and must authorize the call. The
// verification verdict and the mint outcome are reported separately; a
// failed mint leaves the verdict untouched and the call still commits.
func (f Facade) VerifyAndMint(env *host.Env, relayer, owner interfaces.Principal, requestID uint64, details interfaces.CertificateDetails) (*interfaces.MintResult, error) {
	cfg, err := f.Config(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, interfaces.ErrNotInitialized
	}
	if err := env.RequireAuth(relayer); err != nil {
		return nil, err
	}
	approved, err := f.IsProvider(env, relayer)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, interfaces.ErrUnauthorizedSigner
	}

	value, err := env.Invoke(cfg.Registry, registry.FnGetRequest, requestID)
	if err != nil {
		return nil, err
	}
	req, err := host.Result[*interfaces.VerificationRequest](value)
	if err != nil {
		return nil, &host.AbortError{Reason: "registry returned malformed request", Err: err}
	}
	if req == nil {
		return nil, interfaces.ErrNotFound
	}

	result := &interfaces.MintResult{RequestID: requestID, State: req.State}
	switch {
	case req.State.Kind == interfaces.StatePending:
		result.VerificationError = "request is still pending"
	case req.State.Kind == interfaces.StateRejected:
		result.VerificationError = "request was rejected: " + req.State.Reason
	case interfaces.ContentID(req.ContentHash).String() != details.ManifestHash:
		result.VerificationError = "manifest hash does not match the attested content hash"
	default:
		result.ContentVerified = true
	}

	if result.ContentVerified {
		f.mint(env, cfg.Provenance, owner, details, result)
	}

	env.Log().Debug("Verify and mint",
		"request", requestID,
		"contentVerified", result.ContentVerified,
		"certificateMinted", result.CertificateMinted,
		"mintError", result.MintError)

	err = env.Publish([]string{"oracle", "VerifyAndMint", strconv.FormatUint(requestID, 10)}, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (Facade) mint(env *host.Env, provenanceAddr, owner interfaces.Principal, details interfaces.CertificateDetails, result *interfaces.MintResult) {
	value, appErr, callErr := env.TryInvoke(provenanceAddr, provenance.FnMint, owner, details)
	switch {
	case appErr != nil:
		result.MintError = appErr.Error()
	case callErr != nil:
		result.MintError = "certificate ledger call failed"
		if errors.Is(callErr, host.ErrAborted) {
			result.MintError = "certificate ledger refused the oracle"
		}
	default:
		id, err := host.Result[uint64](value)
		if err != nil {
			result.MintError = "certificate ledger returned malformed id"
			return
		}
		result.CertificateMinted = true
		result.CertificateID = id
	}
}
