// Package httpserver exposes the registry, the certificate ledger, the
// verification oracle and the content archive over HTTP.
//
// Handlers are thin: they decode the request, call the contract clients and
// map the outcome to a status code (see statusFor). Typed contract errors
// keep their numeric code in the response body, and aborted calls are
// flagged as such, so api/clients can reconstruct them for errors.Is.
//
// Administrative routes require a signed request. The signer recovered from
// the signature is attached to the ledger call as an authorizing principal;
// the contracts decide whether that principal may act.
package httpserver
