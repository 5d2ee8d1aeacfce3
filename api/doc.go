// Package api holds the wire types of the registry HTTP API and the request
// signing scheme shared by the server and its clients.
//
// Mutating administrative calls are signed: the client signs
// Keccak256(method, path, expiry, body) with a secp256k1 key and the server
// recovers the signer's address from the signature. The recovered address
// is the principal whose authorization the ledger checks, so the HTTP layer
// never decides who may do what.
package api
