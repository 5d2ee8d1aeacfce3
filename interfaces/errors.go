package interfaces

import "errors"

// ContractError is a typed business outcome returned by a contract. Callers
// branch on these with errors.Is; the numeric code survives the HTTP API.
type ContractError struct {
	Code uint32
	Name string
}

func (e *ContractError) Error() string {
	return e.Name
}

var (
	ErrNotFound              = &ContractError{Code: 1, Name: "NotFound"}
	ErrUnauthorized          = &ContractError{Code: 2, Name: "Unauthorized"}
	ErrAlreadyProcessed      = &ContractError{Code: 5, Name: "AlreadyProcessed"}
	ErrDuplicateHash         = &ContractError{Code: 7, Name: "DuplicateHash"}
	ErrAlreadyInitialized    = &ContractError{Code: 8, Name: "AlreadyInitialized"}
	ErrNotInitialized        = &ContractError{Code: 9, Name: "NotInitialized"}
	ErrUnauthorizedSigner    = &ContractError{Code: 10, Name: "UnauthorizedSigner"}
	ErrTeeNotVerified        = &ContractError{Code: 11, Name: "TeeNotVerified"}
	ErrRegistryCallFailed    = &ContractError{Code: 12, Name: "RegistryCallFailed"}
	ErrRegistryNotConfigured = &ContractError{Code: 13, Name: "RegistryNotConfigured"}
	ErrDuplicateCertificate  = &ContractError{Code: 14, Name: "DuplicateCertificate"}
	ErrCertificateNotFound   = &ContractError{Code: 15, Name: "CertificateNotFound"}
)

var contractErrors = []*ContractError{
	ErrNotFound,
	ErrUnauthorized,
	ErrAlreadyProcessed,
	ErrDuplicateHash,
	ErrAlreadyInitialized,
	ErrNotInitialized,
	ErrUnauthorizedSigner,
	ErrTeeNotVerified,
	ErrRegistryCallFailed,
	ErrRegistryNotConfigured,
	ErrDuplicateCertificate,
	ErrCertificateNotFound,
}

// ContractErrorByCode maps a code back to its sentinel, or nil if unknown.
func ContractErrorByCode(code uint32) *ContractError {
	for _, e := range contractErrors {
		if e.Code == code {
			return e
		}
	}
	return nil
}

// AsContractError extracts the typed contract error from err, if any.
func AsContractError(err error) (*ContractError, bool) {
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
