// Package main (cmd/httpserver) runs a registry node: the TEE trust registry,
// the certificate ledger and the verification oracle, served over HTTP.
//
// The ledger is kept in SQLite when --db-path is set and in memory
// otherwise. Contracts are deployed on every start; their state lives in the
// ledger, so a restart with the same database resumes it. --bootstrap
// initializes any contract that is not initialized yet, with --admin-address
// as registry and oracle admin and the oracle as minting authority.
//
// Content uploaded through /api/content is written to every --storage
// backend and read back from the first one that has it.
//
// Example:
//
//	registry-server --db-path=./ledger.db \
//	    --bootstrap --admin-address=0x71C7656EC7ab88b098defB751B7401B5f6d8976F \
//	    --storage=file:///var/lib/registry/content \
//	    --storage=s3://archive/registry/?region=eu-west-1
package main
