// Package clients provides Go clients for the registry HTTP API. The
// registry and oracle clients implement the same interfaces as the on-ledger
// contract clients, so tools work against either.
package clients
