// Package oracle is the verification facade contract used by relays.
//
// VerifyTeeHash calls the registry through a fallible cross-contract call and
// keeps "the registry said no" (ErrTeeNotVerified) apart from "the registry
// could not be asked" (ErrRegistryCallFailed). VerifyAttestation is a
// one-shot check with no request lifecycle: joint provider and hash trust,
// then an aborting signature check.
//
// VerifyAndMint lets an approved relayer turn a verified registry request
// into a certificate. The oracle is the provenance contract's minting
// authority and authorizes the mint as the invoking contract.
package oracle
