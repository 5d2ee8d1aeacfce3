// Package main (cmd/admin) is the operator CLI for a registry node.
//
// Every mutating command is a signed request: the node recovers the signer
// from the secp256k1 signature and the contracts decide whether it may act.
// The signing key comes from --signing-key, REGISTRY_SIGNING_KEY or
// --signing-key-file; generate-key creates one.
//
// Typical setup of a fresh node started without --bootstrap:
//
//	registry-admin --signing-key-file admin.key init <admin address>
//	registry-admin --signing-key-file admin.key init-provenance <oracle address>
//	registry-admin --signing-key-file admin.key init-oracle <registry> <provenance> <admin>
//	registry-admin --signing-key-file admin.key add-provider <ed25519 key>
//	registry-admin --signing-key-file admin.key add-tee-hash $(registry-admin tee-hash --quote quote.bin)
//	registry-admin --signing-key-file admin.key approve-relay <relayer address>
//
// The node address can be given with --server-url or discovered through a
// DNS SRV record with --server-srv.
package main
