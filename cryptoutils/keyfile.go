package cryptoutils

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ruteri/tee-provenance-registry/interfaces"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const keyFileVersion = 1

// Argon2id parameters for passphrase-protected key files.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key file")

// KeyFile is the on-disk form of a provider's ed25519 signing key. The seed
// is sealed with XChaCha20-Poly1305 under an Argon2id key derived from a
// passphrase; the public key is authenticated as associated data.
type KeyFile struct {
	Version    int                  `json:"version"`
	PublicKey  interfaces.PublicKey `json:"public_key"`
	Salt       string               `json:"salt"`
	Nonce      string               `json:"nonce"`
	Ciphertext string               `json:"ciphertext"`
	Time       uint32               `json:"argon2_time"`
	Memory     uint32               `json:"argon2_memory"`
	Threads    uint8                `json:"argon2_threads"`
}

// GenerateProviderKey creates a new provider signing key.
func GenerateProviderKey() (ed25519.PrivateKey, interfaces.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, interfaces.PublicKey{}, err
	}
	key, err := interfaces.NewPublicKeyFromBytes(pub)
	return priv, key, err
}

func sealKey(passphrase, salt []byte, time, memory uint32, threads uint8) []byte {
	return argon2.IDKey(passphrase, salt, time, memory, threads, chacha20poly1305.KeySize)
}

// SealKey encrypts priv under passphrase.
func SealKey(priv ed25519.PrivateKey, passphrase []byte) (*KeyFile, error) {
	pub, err := interfaces.NewPublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}

	salt := make([]byte, 16)
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(sealKey(passphrase, salt, argonTime, argonMemory, argonThreads))
	if err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, priv.Seed(), pub[:])

	return &KeyFile{
		Version:    keyFileVersion,
		PublicKey:  pub,
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(ciphertext),
		Time:       argonTime,
		Memory:     argonMemory,
		Threads:    argonThreads,
	}, nil
}

// Open decrypts the key and checks it against the recorded public key.
func (kf *KeyFile) Open(passphrase []byte) (ed25519.PrivateKey, error) {
	if kf.Version != keyFileVersion {
		return nil, fmt.Errorf("unsupported key file version %d", kf.Version)
	}
	salt, err := hex.DecodeString(kf.Salt)
	if err != nil {
		return nil, fmt.Errorf("bad salt: %w", err)
	}
	nonce, err := hex.DecodeString(kf.Nonce)
	if err != nil {
		return nil, fmt.Errorf("bad nonce: %w", err)
	}
	ciphertext, err := hex.DecodeString(kf.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("bad ciphertext: %w", err)
	}

	aead, err := chacha20poly1305.NewX(sealKey(passphrase, salt, kf.Time, kf.Memory, kf.Threads))
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.New("bad nonce length")
	}
	seed, err := aead.Open(nil, nonce, ciphertext, kf.PublicKey[:])
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	if len(seed) != ed25519.SeedSize {
		return nil, ErrWrongPassphrase
	}

	priv := ed25519.NewKeyFromSeed(seed)
	if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(kf.PublicKey[:])) {
		return nil, errors.New("key file public key does not match sealed key")
	}
	return priv, nil
}

func (kf *KeyFile) Marshal() ([]byte, error) {
	return json.MarshalIndent(kf, "", "  ")
}

func ParseKeyFile(data []byte) (*KeyFile, error) {
	var kf KeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("could not parse key file: %w", err)
	}
	return &kf, nil
}
