// Package main (cmd/provider) is the CLI used by attestation providers and
// relayers.
//
// A provider keeps its ed25519 signing key in an encrypted key file
// (keygen), optionally split into Shamir shares for offline backup
// (recover). Content is archived and a verification request opened with
// request; the provider then signs the attestation for it with attest, taking
// the TEE hash from a flag, a saved quote, or a fresh quote whose report
// data binds the provider key and request id.
//
// An approved relayer finally calls relay, which checks that the request is
// verified for the archived manifest and mints the provenance certificate.
package main
