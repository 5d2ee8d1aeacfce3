// Package cryptoutils holds the key and attestation helpers used by the
// command line tools: deriving registry TEE hashes from TDX quotes, sealing
// provider signing keys under a passphrase, and splitting them into Shamir
// backup shares.
package cryptoutils
