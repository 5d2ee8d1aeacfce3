// Package host is the local ledger the provenance contracts run on.
//
// A Ledger executes one top-level call at a time. Every call frame stages its
// writes and events in an overlay; the top-level frame commits them to the
// Backend in one step when the contract returns without error, and drops them
// otherwise. Sub-calls made with Env.Invoke or Env.TryInvoke run in nested
// overlays that merge into the caller only on success.
//
// Storage comes in two durability classes. Persistent entries live until
// removed. Temporary entries expire a fixed number of clock ticks after they
// were created and are invisible afterwards.
//
// Protocol violations (missing authorization, bad signatures) are reported
// as *AbortError and match ErrAborted. Contracts return typed business
// outcomes as *interfaces.ContractError.
package host
