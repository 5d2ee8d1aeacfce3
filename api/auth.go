package api

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// Headers of signed requests.
const (
	// AuthSignatureHeader is a 65-byte secp256k1 recoverable signature, hex.
	AuthSignatureHeader = "X-Auth-Signature"
	// AuthExpiryHeader is the unix time after which the signature is void.
	AuthExpiryHeader = "X-Auth-Expiry"
)

// MaxAuthValidity bounds how far in the future a signature may expire.
const MaxAuthValidity = 10 * time.Minute

var (
	ErrMissingSignature = errors.New("missing request signature")
	ErrSignatureExpired = errors.New("request signature expired")
	ErrBadSignature     = errors.New("invalid request signature")
)

// SigningHash is the digest a signed request commits to.
func SigningHash(method, path string, expiry int64, body []byte) []byte {
	return crypto.Keccak256(
		[]byte(method), []byte{'\n'},
		[]byte(path), []byte{'\n'},
		[]byte(strconv.FormatInt(expiry, 10)), []byte{'\n'},
		body,
	)
}

// SignRequest sets the auth headers on req for body, valid until expiry.
func SignRequest(req *http.Request, body []byte, key *ecdsa.PrivateKey, expiry time.Time) error {
	exp := expiry.Unix()
	sig, err := crypto.Sign(SigningHash(req.Method, req.URL.Path, exp, body), key)
	if err != nil {
		return fmt.Errorf("could not sign request: %w", err)
	}
	req.Header.Set(AuthSignatureHeader, hexutil.Encode(sig))
	req.Header.Set(AuthExpiryHeader, strconv.FormatInt(exp, 10))
	return nil
}

// RecoverSigner returns the principal that signed r with body.
func RecoverSigner(r *http.Request, body []byte, now time.Time) (interfaces.Principal, error) {
	sigHex := r.Header.Get(AuthSignatureHeader)
	expHex := r.Header.Get(AuthExpiryHeader)
	if sigHex == "" || expHex == "" {
		return interfaces.Principal{}, ErrMissingSignature
	}

	exp, err := strconv.ParseInt(expHex, 10, 64)
	if err != nil {
		return interfaces.Principal{}, fmt.Errorf("%w: bad expiry", ErrBadSignature)
	}
	expiry := time.Unix(exp, 0)
	if !now.Before(expiry) {
		return interfaces.Principal{}, ErrSignatureExpired
	}
	if expiry.Sub(now) > MaxAuthValidity {
		return interfaces.Principal{}, fmt.Errorf("%w: expiry too far in the future", ErrBadSignature)
	}

	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		return interfaces.Principal{}, fmt.Errorf("%w: malformed signature", ErrBadSignature)
	}
	pub, err := crypto.SigToPub(SigningHash(r.Method, r.URL.Path, exp, body), sig)
	if err != nil {
		return interfaces.Principal{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
