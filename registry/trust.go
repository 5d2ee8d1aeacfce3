package registry

import (
	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

const (
	keyAdmin          = "admin"
	keyProviderPrefix = "provider/"
	keyTeeHashPrefix  = "teehash/"
)

type providerEvent struct {
	Provider interfaces.PublicKey `json:"provider"`
}

type teeHashEvent struct {
	Hash interfaces.TeeHash `json:"hash"`
}

// TrustRegistry holds the admin-curated sets of trusted provider keys and
// TEE measurement hashes. Provider mutations are idempotent; adding a hash
// that is already trusted fails with ErrDuplicateHash.
type TrustRegistry struct{}

func (TrustRegistry) Initialize(env *host.Env, admin interfaces.Principal) error {
	store := env.Persistent()
	initialized, err := store.Has(keyAdmin)
	if err != nil {
		return err
	}
	if initialized {
		return interfaces.ErrAlreadyInitialized
	}
	return store.Set(keyAdmin, admin)
}

// Admin returns nil when no admin has been configured.
func (TrustRegistry) Admin(env *host.Env) (*interfaces.Principal, error) {
	var admin interfaces.Principal
	ok, err := env.Persistent().Get(keyAdmin, &admin)
	if err != nil || !ok {
		return nil, err
	}
	return &admin, nil
}

// requireAdmin fails with ErrUnauthorized before initialization and aborts
// when the admin did not authorize the call.
func (r TrustRegistry) requireAdmin(env *host.Env) error {
	admin, err := r.Admin(env)
	if err != nil {
		return err
	}
	if admin == nil {
		return interfaces.ErrUnauthorized
	}
	return env.RequireAuth(*admin)
}

func (r TrustRegistry) AddProvider(env *host.Env, key interfaces.PublicKey) error {
	if err := r.requireAdmin(env); err != nil {
		return err
	}
	if err := env.Persistent().Set(keyProviderPrefix+key.String(), true); err != nil {
		return err
	}
	env.Log().Debug("Provider added", "provider", key.String())
	return env.Publish([]string{"registry", "ProviderAdded", key.String()}, providerEvent{Provider: key})
}

func (r TrustRegistry) RemoveProvider(env *host.Env, key interfaces.PublicKey) error {
	if err := r.requireAdmin(env); err != nil {
		return err
	}
	env.Persistent().Remove(keyProviderPrefix + key.String())
	env.Log().Debug("Provider removed", "provider", key.String())
	return env.Publish([]string{"registry", "ProviderRemoved", key.String()}, providerEvent{Provider: key})
}

func (TrustRegistry) HasProvider(env *host.Env, key interfaces.PublicKey) (bool, error) {
	return env.Persistent().Has(keyProviderPrefix + key.String())
}

func (r TrustRegistry) AddTeeHash(env *host.Env, hash interfaces.TeeHash) error {
	if err := r.requireAdmin(env); err != nil {
		return err
	}

	store := env.Persistent()
	exists, err := store.Has(keyTeeHashPrefix + hash.String())
	if err != nil {
		return err
	}
	if exists {
		return interfaces.ErrDuplicateHash
	}

	if err := store.Set(keyTeeHashPrefix+hash.String(), true); err != nil {
		return err
	}
	env.Log().Debug("TEE hash added", "hash", hash.String())
	return env.Publish([]string{"registry", "TeeHashAdded", hash.String()}, teeHashEvent{Hash: hash})
}

func (r TrustRegistry) RemoveTeeHash(env *host.Env, hash interfaces.TeeHash) error {
	if err := r.requireAdmin(env); err != nil {
		return err
	}
	env.Persistent().Remove(keyTeeHashPrefix + hash.String())
	env.Log().Debug("TEE hash removed", "hash", hash.String())
	return env.Publish([]string{"registry", "TeeHashRemoved", hash.String()}, teeHashEvent{Hash: hash})
}

func (TrustRegistry) HasTeeHash(env *host.Env, hash interfaces.TeeHash) (bool, error) {
	return env.Persistent().Has(keyTeeHashPrefix + hash.String())
}

// IsVerified reports whether both hash and provider are trusted.
func (r TrustRegistry) IsVerified(env *host.Env, hash interfaces.TeeHash, provider interfaces.PublicKey) (bool, error) {
	trustedHash, err := r.HasTeeHash(env, hash)
	if err != nil || !trustedHash {
		return false, err
	}
	return r.HasProvider(env, provider)
}
