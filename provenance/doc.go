// Package provenance is the certificate ledger contract.
//
// Certificates are minted by a single authority (normally the oracle
// contract) configured once with Initialize. Each certificate gets the next
// id, the ledger clock as its timestamp, and an entry in the manifest hash
// index; minting a second certificate for an indexed manifest hash fails
// with ErrDuplicateCertificate before anything is written. There is no
// update or delete.
package provenance
