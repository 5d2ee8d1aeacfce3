// Package registry is the trust registry contract: the admin-curated sets of
// attestation provider keys and TEE measurement hashes, the verification
// request store, and the validator that settles requests.
//
// # Request lifecycle
//
// SubmitRequest allocates the next request id (starting at 1, never reused)
// and stores the request as Pending in temporary storage. Once the TTL
// elapses GetRequest returns nil for it.
//
// ProcessVerification moves a Pending request to Verified or Rejected
// exactly once:
//
//   - unknown or expired request: ErrNotFound
//   - request no longer pending: ErrAlreadyProcessed
//   - signature does not verify under attestation.Provider: the call aborts
//   - provider not trusted: Rejected("Unauthorized")
//   - TEE hash not trusted: Rejected("InvalidTeeHash")
//   - attestation bound to another request: Rejected("InvalidAttestation")
//   - otherwise: Verified
//
// Rejections are committed and returned without an error.
//
// # Administration
//
// Every mutation of the trust sets requires authorization from the admin
// set by Initialize. Before initialization they fail with ErrUnauthorized.
//
// Client talks to a deployed Contract through a host.Caller; MockRegistry is
// a testify mock of interfaces.TrustRegistry for handler tests.
package registry
