package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ruteri/tee-provenance-registry/api"
	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

type signerKey struct{}

// signerFrom returns the principal recovered by requireSignature.
func signerFrom(ctx context.Context) (interfaces.Principal, bool) {
	p, ok := ctx.Value(signerKey{}).(interfaces.Principal)
	return p, ok
}

// requireSignature recovers the request signer and attaches it to the
// context both for handlers and as a ledger signer. Whether the signer may
// perform the call is decided by the contracts.
func (h *Handler) requireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			h.writeError(w, r, badRequest(fmt.Errorf("could not read body: %w", err)))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		signer, err := api.RecoverSigner(r, body, h.now())
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), signerKey{}, signer)
		ctx = host.WithSigners(ctx, signer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) now() time.Time {
	if h.clock != nil {
		return h.clock()
	}
	return time.Now()
}
