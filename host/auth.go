package host

import (
	"context"
	"crypto/ed25519"
	"slices"

	"github.com/ruteri/tee-provenance-registry/interfaces"
)

type signersKey struct{}

// WithSigners attaches principals whose approval of the call has already
// been proven (for example by a verified request signature).
func WithSigners(ctx context.Context, signers ...interfaces.Principal) context.Context {
	existing := SignersFromContext(ctx)
	return context.WithValue(ctx, signersKey{}, append(slices.Clone(existing), signers...))
}

func SignersFromContext(ctx context.Context) []interfaces.Principal {
	signers, _ := ctx.Value(signersKey{}).([]interfaces.Principal)
	return signers
}

// RequireAuth aborts unless principal approved the call, either as a proven
// signer or as the contract that directly invoked the current one.
func (e *Env) RequireAuth(principal interfaces.Principal) error {
	if e.invoker != (interfaces.Principal{}) && e.invoker == principal {
		return nil
	}
	if slices.Contains(e.signers, principal) {
		return nil
	}
	return Abort("missing authorization from %s", principal.Hex())
}

// VerifyEd25519 aborts unless sig is a valid signature of msg by key.
func (e *Env) VerifyEd25519(key interfaces.PublicKey, msg []byte, sig interfaces.Signature) error {
	if !ed25519.Verify(ed25519.PublicKey(key[:]), msg, sig[:]) {
		return Abort("invalid ed25519 signature for key %s", key)
	}
	return nil
}
