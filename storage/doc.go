// Package storage is the content archive behind the /api/content endpoints.
//
// Content is addressed by the SHA-256 of its bytes, the same digest the
// registry records as a request's content hash and certificates record as
// their manifest hash. Every backend lays content out as
// "<type>/<hex content id>" and checks fetched bytes against the id, so a
// misbehaving mirror cannot substitute content.
//
// Backends are configured with location URIs (see StorageBackendFactory).
// Several locations combine into a MultiStorageBackend that writes to all of
// them and reads from the first that has the item. The GitHub backend is a
// read-only mirror.
package storage
