package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ruteri/tee-provenance-registry/api"
	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// RequestError provides structured error information for HTTP responses.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func badRequest(err error) error {
	return &RequestError{StatusCode: http.StatusBadRequest, Err: err}
}

// statusFor maps ledger, auth and storage failures onto HTTP status codes.
func statusFor(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}

	switch {
	case errors.Is(err, api.ErrMissingSignature),
		errors.Is(err, api.ErrBadSignature),
		errors.Is(err, api.ErrSignatureExpired):
		return http.StatusUnauthorized
	case errors.Is(err, host.ErrAborted):
		return http.StatusForbidden
	case errors.Is(err, host.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, host.ErrContractNotFound), errors.Is(err, host.ErrFunctionNotFound):
		return http.StatusBadGateway
	case errors.Is(err, interfaces.ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	}

	ce, ok := interfaces.AsContractError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ce {
	case interfaces.ErrNotFound, interfaces.ErrCertificateNotFound:
		return http.StatusNotFound
	case interfaces.ErrUnauthorized, interfaces.ErrUnauthorizedSigner, interfaces.ErrTeeNotVerified:
		return http.StatusForbidden
	case interfaces.ErrRegistryCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusConflict
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := api.ErrorResponse{Error: err.Error(), Aborted: errors.Is(err, host.ErrAborted)}
	if ce, ok := interfaces.AsContractError(err); ok && !resp.Aborted {
		resp.Code = ce.Code
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "path", r.URL.Path, "status", status, "err", err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	} else {
		h.log.Debug("Request refused", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, resp)
}
