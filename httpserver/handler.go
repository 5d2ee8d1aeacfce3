package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/tee-provenance-registry/api"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

const defaultEventLimit = 100

// Observer receives verification outcomes for metrics.
type Observer interface {
	ObserveVerdict(state, reason string)
	ObserveMint(outcome string)
}

// Dependencies are the services behind the API. Content may be nil, in which
// case the content routes answer 503.
type Dependencies struct {
	Registry   interfaces.TrustRegistry
	Provenance interfaces.CertificateLedger
	Oracle     interfaces.VerificationOracle
	Events     interfaces.EventLog
	Content    interfaces.StorageBackend
	Observer   Observer
}

// Handler translates API requests into ledger calls. It holds no state of
// its own.
type Handler struct {
	Dependencies
	log   *slog.Logger
	clock func() time.Time
}

func NewHandler(deps Dependencies, log *slog.Logger) *Handler {
	return &Handler{Dependencies: deps, log: log}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

func pathUint(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, badRequest(fmt.Errorf("invalid %s", name))
	}
	return v, nil
}

func pathPublicKey(r *http.Request) (interfaces.PublicKey, error) {
	key, err := interfaces.NewPublicKeyFromHex(chi.URLParam(r, "key"))
	if err != nil {
		return key, badRequest(err)
	}
	return key, nil
}

func pathTeeHash(r *http.Request) (interfaces.TeeHash, error) {
	hash, err := interfaces.NewTeeHashFromHex(chi.URLParam(r, "hash"))
	if err != nil {
		return hash, badRequest(err)
	}
	return hash, nil
}

func pathPrincipal(r *http.Request) (interfaces.Principal, error) {
	p, err := interfaces.NewPrincipalFromHex(chi.URLParam(r, "address"))
	if err != nil {
		return p, badRequest(err)
	}
	return p, nil
}

func (h *Handler) HandleGetAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.Registry.Admin(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.AdminResponse{Admin: admin})
}

func (h *Handler) HandleInitializeRegistry(w http.ResponseWriter, r *http.Request) {
	var req api.InitializeRegistryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Registry.Initialize(r.Context(), req.Admin); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleHasProvider(w http.ResponseWriter, r *http.Request) {
	key, err := pathPublicKey(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	trusted, err := h.Registry.HasProvider(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.TrustedResponse{Trusted: trusted})
}

func (h *Handler) HandleAddProvider(w http.ResponseWriter, r *http.Request) {
	key, err := pathPublicKey(r)
	if err == nil {
		err = h.Registry.AddProvider(r.Context(), key)
	}
	h.writeNoContent(w, r, err)
}

func (h *Handler) HandleRemoveProvider(w http.ResponseWriter, r *http.Request) {
	key, err := pathPublicKey(r)
	if err == nil {
		err = h.Registry.RemoveProvider(r.Context(), key)
	}
	h.writeNoContent(w, r, err)
}

// HandleHasTeeHash answers whether a hash is trusted, or with ?provider=
// whether the hash and provider are jointly trusted.
func (h *Handler) HandleHasTeeHash(w http.ResponseWriter, r *http.Request) {
	hash, err := pathTeeHash(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var trusted bool
	if raw := r.URL.Query().Get("provider"); raw != "" {
		provider, perr := interfaces.NewPublicKeyFromHex(raw)
		if perr != nil {
			h.writeError(w, r, badRequest(perr))
			return
		}
		trusted, err = h.Registry.IsVerified(r.Context(), hash, provider)
	} else {
		trusted, err = h.Registry.HasTeeHash(r.Context(), hash)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.TrustedResponse{Trusted: trusted})
}

func (h *Handler) HandleAddTeeHash(w http.ResponseWriter, r *http.Request) {
	hash, err := pathTeeHash(r)
	if err == nil {
		err = h.Registry.AddTeeHash(r.Context(), hash)
	}
	h.writeNoContent(w, r, err)
}

func (h *Handler) HandleRemoveTeeHash(w http.ResponseWriter, r *http.Request) {
	hash, err := pathTeeHash(r)
	if err == nil {
		err = h.Registry.RemoveTeeHash(r.Context(), hash)
	}
	h.writeNoContent(w, r, err)
}

func (h *Handler) writeNoContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.ContentHash == (common.Hash{}) {
		h.writeError(w, r, badRequest(errors.New("content_hash is required")))
		return
	}
	id, err := h.Registry.SubmitRequest(r.Context(), req.ContentHash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.SubmitRequestResponse{ID: id})
}

func (h *Handler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.Registry.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req == nil {
		h.writeError(w, r, interfaces.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// HandleProcessAttestation submits a provider's signed attestation for a
// request. Rejections are a normal outcome and come back with status 200.
func (h *Handler) HandleProcessAttestation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req api.AttestationSubmission
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	state, err := h.Registry.ProcessVerification(r.Context(), id, req.Attestation, req.Signature)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.Observer != nil {
		h.Observer.ObserveVerdict(state.Kind.String(), state.Reason)
	}
	h.log.Info("Verification processed", "request", id, "state", state.String())
	writeJSON(w, http.StatusOK, api.ProcessResponse{State: state})
}

func (h *Handler) HandleVerifyTeeHash(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyTeeHashRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Oracle.VerifyTeeHash(r.Context(), req.TeeHash); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.VerifyResponse{Verified: true})
}

func (h *Handler) HandleVerifyAttestation(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyAttestationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Oracle.VerifyAttestation(r.Context(), req.Provider, req.TeeHash, req.Payload, req.Signature); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.VerifyResponse{Verified: true})
}

func (h *Handler) HandleInitializeProvenance(w http.ResponseWriter, r *http.Request) {
	var req api.InitializeProvenanceRequest
	err := decodeJSON(r, &req)
	if err == nil {
		err = h.Provenance.Initialize(r.Context(), req.Authority)
	}
	h.writeNoContent(w, r, err)
}

func (h *Handler) HandleInitializeOracle(w http.ResponseWriter, r *http.Request) {
	var req api.InitializeOracleRequest
	err := decodeJSON(r, &req)
	if err == nil {
		err = h.Oracle.Initialize(r.Context(), req.Registry, req.Provenance, req.Admin)
	}
	h.writeNoContent(w, r, err)
}

func (h *Handler) HandleIsRelayer(w http.ResponseWriter, r *http.Request) {
	relayer, err := pathPrincipal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	approved, err := h.Oracle.IsProvider(r.Context(), relayer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.TrustedResponse{Trusted: approved})
}

func (h *Handler) HandleApproveRelayer(w http.ResponseWriter, r *http.Request) {
	relayer, err := pathPrincipal(r)
	if err == nil {
		err = h.Oracle.AddProvider(r.Context(), relayer)
	}
	h.writeNoContent(w, r, err)
}

func (h *Handler) HandleRevokeRelayer(w http.ResponseWriter, r *http.Request) {
	relayer, err := pathPrincipal(r)
	if err == nil {
		err = h.Oracle.RemoveProvider(r.Context(), relayer)
	}
	h.writeNoContent(w, r, err)
}

// HandleVerifyAndMint runs the verify-and-mint workflow with the request
// signer as relayer.
func (h *Handler) HandleVerifyAndMint(w http.ResponseWriter, r *http.Request) {
	relayer, ok := signerFrom(r.Context())
	if !ok {
		h.writeError(w, r, api.ErrMissingSignature)
		return
	}
	var req api.VerifyAndMintRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.Oracle.VerifyAndMint(r.Context(), relayer, req.Owner, req.RequestID, req.Details)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.Observer != nil {
		switch {
		case result.CertificateMinted:
			h.Observer.ObserveMint("minted")
		case result.ContentVerified:
			h.Observer.ObserveMint("mint_failed")
		default:
			h.Observer.ObserveMint("unverified")
		}
	}
	h.log.Info("Verify and mint",
		"request", req.RequestID,
		"relayer", relayer.Hex(),
		"contentVerified", result.ContentVerified,
		"certificateMinted", result.CertificateMinted)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleGetCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cert, err := h.Provenance.GetCertificate(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

func (h *Handler) HandleGetCertificateByManifest(w http.ResponseWriter, r *http.Request) {
	cert, err := h.Provenance.CertificateByManifest(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

func contentType(r *http.Request) (interfaces.ContentType, error) {
	ct, err := interfaces.ParseContentType(r.URL.Query().Get("type"))
	if err != nil {
		return ct, badRequest(err)
	}
	return ct, nil
}

// HandleStoreContent archives the raw request body. The returned storage id
// and manifest hash are what a relayer puts into certificate details.
func (h *Handler) HandleStoreContent(w http.ResponseWriter, r *http.Request) {
	if h.Content == nil {
		h.writeError(w, r, interfaces.ErrBackendUnavailable)
		return
	}
	ct, err := contentType(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("could not read body: %w", err)))
		return
	}
	if len(data) == 0 {
		h.writeError(w, r, badRequest(errors.New("empty content")))
		return
	}

	id, err := h.Content.Store(r.Context(), data, ct)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.ContentResponse{
		StorageID:    id.String(),
		ManifestHash: interfaces.ManifestHash(data),
	})
}

func (h *Handler) HandleFetchContent(w http.ResponseWriter, r *http.Request) {
	if h.Content == nil {
		h.writeError(w, r, interfaces.ErrBackendUnavailable)
		return
	}
	ct, err := contentType(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := interfaces.NewContentIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, badRequest(err))
		return
	}

	data, err := h.Content.Fetch(r.Context(), id, ct)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := interfaces.EventFilter{Topic: q.Get("topic"), Limit: defaultEventLimit}

	if raw := q.Get("contract"); raw != "" {
		contract, err := interfaces.NewPrincipalFromHex(raw)
		if err != nil {
			h.writeError(w, r, badRequest(err))
			return
		}
		filter.Contract = &contract
	}
	if raw := q.Get("from"); raw != "" {
		from, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.writeError(w, r, badRequest(errors.New("invalid from")))
			return
		}
		filter.FromID = from
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 1000 {
			h.writeError(w, r, badRequest(errors.New("invalid limit")))
			return
		}
		filter.Limit = limit
	}

	events, err := h.Events.Events(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []interfaces.Event{}
	}
	writeJSON(w, http.StatusOK, api.EventsResponse{Events: events})
}
