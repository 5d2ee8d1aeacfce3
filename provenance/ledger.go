package provenance

import (
	"strconv"

	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

const (
	keyAuthority      = "authority"
	keyCertCounter    = "cert_count"
	keyCertPrefix     = "cert/"
	keyManifestPrefix = "manifest/"
)

type mintedEvent struct {
	Owner         interfaces.Principal `json:"owner"`
	CertificateID uint64               `json:"certificate_id"`
	ManifestHash  string               `json:"manifest_hash"`
}

// Ledger is the append-only certificate store. Only the minting authority
// set at initialization can mint, and each manifest hash is certified at
// most once.
type Ledger struct{}

func certKey(id uint64) string {
	return keyCertPrefix + strconv.FormatUint(id, 10)
}

func (Ledger) Initialize(env *host.Env, authority interfaces.Principal) error {
	store := env.Persistent()
	initialized, err := store.Has(keyAuthority)
	if err != nil {
		return err
	}
	if initialized {
		return interfaces.ErrAlreadyInitialized
	}
	return store.Set(keyAuthority, authority)
}

func (Ledger) Authority(env *host.Env) (*interfaces.Principal, error) {
	var authority interfaces.Principal
	ok, err := env.Persistent().Get(keyAuthority, &authority)
	if err != nil || !ok {
		return nil, err
	}
	return &authority, nil
}

// Mint records a certificate for owner, stamped with the ledger clock.
// The authority, not the owner, must authorize the call.
func (l Ledger) Mint(env *host.Env, owner interfaces.Principal, details interfaces.CertificateDetails) (uint64, error) {
	authority, err := l.Authority(env)
	if err != nil {
		return 0, err
	}
	if authority == nil {
		return 0, interfaces.ErrNotInitialized
	}
	if err := env.RequireAuth(*authority); err != nil {
		return 0, err
	}

	store := env.Persistent()
	manifestKey := keyManifestPrefix + details.ManifestHash
	exists, err := store.Has(manifestKey)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, interfaces.ErrDuplicateCertificate
	}

	count, err := l.Count(env)
	if err != nil {
		return 0, err
	}
	id := count + 1

	cert := interfaces.Certificate{
		ID:              id,
		StorageID:       details.StorageID,
		ManifestHash:    details.ManifestHash,
		AttestationHash: details.AttestationHash,
		Creator:         owner,
		Timestamp:       env.Now(),
	}
	if err := store.Set(certKey(id), &cert); err != nil {
		return 0, err
	}
	if err := store.Set(manifestKey, id); err != nil {
		return 0, err
	}
	if err := store.Set(keyCertCounter, id); err != nil {
		return 0, err
	}

	env.Log().Debug("Certificate minted", "id", id, "owner", owner.Hex(), "manifestHash", details.ManifestHash)
	err = env.Publish(
		[]string{"provenance", "CertificateMinted", owner.Hex(), strconv.FormatUint(id, 10), details.ManifestHash},
		mintedEvent{Owner: owner, CertificateID: id, ManifestHash: details.ManifestHash},
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (Ledger) Get(env *host.Env, id uint64) (*interfaces.Certificate, error) {
	var cert interfaces.Certificate
	ok, err := env.Persistent().Get(certKey(id), &cert)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, interfaces.ErrCertificateNotFound
	}
	return &cert, nil
}

func (l Ledger) GetByManifest(env *host.Env, manifestHash string) (*interfaces.Certificate, error) {
	var id uint64
	ok, err := env.Persistent().Get(keyManifestPrefix+manifestHash, &id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, interfaces.ErrCertificateNotFound
	}
	return l.Get(env, id)
}

func (Ledger) Count(env *host.Env) (uint64, error) {
	var count uint64
	if _, err := env.Persistent().Get(keyCertCounter, &count); err != nil {
		return 0, err
	}
	return count, nil
}
