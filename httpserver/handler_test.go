package httpserver

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruteri/tee-provenance-registry/api"
	"github.com/ruteri/tee-provenance-registry/api/clients"
	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/ruteri/tee-provenance-registry/metrics"
	"github.com/ruteri/tee-provenance-registry/oracle"
	"github.com/ruteri/tee-provenance-registry/provenance"
	"github.com/ruteri/tee-provenance-registry/registry"
	"github.com/ruteri/tee-provenance-registry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var trustedHash = interfaces.TeeHash{0x42}

type testServer struct {
	url     string
	ledger  *host.Ledger
	promReg *prometheus.Registry

	oracleAddr interfaces.Principal
	provAddr   interfaces.Principal
	regAddr    interfaces.Principal

	adminKey   *ecdsa.PrivateKey
	relayerKey *ecdsa.PrivateKey

	providerKey  interfaces.PublicKey
	providerPriv ed25519.PrivateKey
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouter(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	cfg := &api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      testLogger(),
		GracefulShutdownDuration: time.Second,
	}
	return New(cfg, NewHandler(deps, cfg.Log), nil).Router()
}

// startServer deploys fresh contracts behind a real router. Nothing is
// initialized; bootstrap does that through the API.
func startServer(t *testing.T) *testServer {
	t.Helper()
	ledger := host.NewLedger(&host.Config{
		Clock: host.NewManualClock(1),
		Log:   testLogger(),
	})

	regAddr, err := ledger.Deploy(registry.ContractName, registry.NewContract(100))
	require.NoError(t, err)
	provAddr, err := ledger.Deploy(provenance.ContractName, provenance.NewContract())
	require.NoError(t, err)
	oracleAddr, err := ledger.Deploy(oracle.ContractName, oracle.NewContract())
	require.NoError(t, err)

	content, err := storage.NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder("test", promReg)
	require.NoError(t, err)

	router := newRouter(t, Dependencies{
		Registry:   registry.NewClient(ledger, regAddr),
		Provenance: provenance.NewClient(ledger, provAddr),
		Oracle:     oracle.NewClient(ledger, oracleAddr),
		Events:     ledger,
		Content:    content,
		Observer:   recorder,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	adminKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	relayerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	providerKey, err := interfaces.NewPublicKeyFromBytes(pub)
	require.NoError(t, err)

	return &testServer{
		url:          srv.URL,
		ledger:       ledger,
		promReg:      promReg,
		oracleAddr:   oracleAddr,
		provAddr:     provAddr,
		regAddr:      regAddr,
		adminKey:     adminKey,
		relayerKey:   relayerKey,
		providerKey:  providerKey,
		providerPriv: priv,
	}
}

func (s *testServer) client(key *ecdsa.PrivateKey) *clients.Client {
	return clients.NewClient(s.url, key)
}

// bootstrap initializes the contracts over HTTP, trusts the provider and
// the TEE hash, and approves the relayer.
func (s *testServer) bootstrap(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	admin := s.client(s.adminKey)
	adminAddr := admin.Address()

	require.NoError(t, admin.Registry().Initialize(ctx, adminAddr))
	require.NoError(t, admin.InitializeProvenance(ctx, s.oracleAddr))
	require.NoError(t, admin.Oracle().Initialize(ctx, s.regAddr, s.provAddr, adminAddr))

	require.NoError(t, admin.Registry().AddProvider(ctx, s.providerKey))
	require.NoError(t, admin.Registry().AddTeeHash(ctx, trustedHash))
	require.NoError(t, admin.Oracle().AddProvider(ctx, crypto.PubkeyToAddress(s.relayerKey.PublicKey)))
}

func (s *testServer) attest(t *testing.T, id uint64, hash interfaces.TeeHash) (interfaces.Attestation, interfaces.Signature) {
	t.Helper()
	att := interfaces.Attestation{Provider: s.providerKey, TeeHash: hash, RequestID: id}
	payload, err := att.Encode()
	require.NoError(t, err)
	sig, err := interfaces.NewSignatureFromBytes(ed25519.Sign(s.providerPriv, payload))
	require.NoError(t, err)
	return att, sig
}

func TestAdminRoutes(t *testing.T) {
	s := startServer(t)
	s.bootstrap(t)
	ctx := context.Background()
	public := s.client(nil)

	admin, err := public.Registry().Admin(ctx)
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, crypto.PubkeyToAddress(s.adminKey.PublicKey), *admin)

	trusted, err := public.Registry().HasProvider(ctx, s.providerKey)
	require.NoError(t, err)
	assert.True(t, trusted)

	trusted, err = public.Registry().IsVerified(ctx, trustedHash, s.providerKey)
	require.NoError(t, err)
	assert.True(t, trusted)

	// Duplicate hashes are a typed outcome, not an abort.
	err = s.client(s.adminKey).Registry().AddTeeHash(ctx, trustedHash)
	require.ErrorIs(t, err, interfaces.ErrDuplicateHash)
	var apiErr *clients.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	t.Run("non-admin signer aborts", func(t *testing.T) {
		err := s.client(s.relayerKey).Registry().AddTeeHash(ctx, interfaces.TeeHash{0x99})
		require.ErrorIs(t, err, host.ErrAborted)
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

		trusted, err := public.Registry().HasTeeHash(ctx, interfaces.TeeHash{0x99})
		require.NoError(t, err)
		assert.False(t, trusted)
	})

	t.Run("unsigned admin call", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, s.url+"/api/registry/tee-hashes/"+trustedHash.String(), nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired signature", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, s.url+"/api/registry/tee-hashes/"+trustedHash.String(), nil)
		require.NoError(t, err)
		require.NoError(t, api.SignRequest(req, nil, s.adminKey, time.Now().Add(-time.Second)))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("signature for another path", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, s.url+"/api/registry/tee-hashes/"+trustedHash.String(), nil)
		require.NoError(t, err)
		signed := req.Clone(context.Background())
		signed.URL.Path = "/api/registry/tee-hashes/" + interfaces.TeeHash{0x01}.String()
		require.NoError(t, api.SignRequest(signed, nil, s.adminKey, time.Now().Add(time.Minute)))
		req.Header = signed.Header

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		// The recovered principal is not the admin.
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		trusted, err := public.Registry().HasTeeHash(ctx, trustedHash)
		require.NoError(t, err)
		assert.True(t, trusted)
	})

	t.Run("malformed hash", func(t *testing.T) {
		resp, err := http.Get(s.url + "/api/registry/tee-hashes/zz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestVerificationFlow(t *testing.T) {
	s := startServer(t)
	s.bootstrap(t)
	ctx := context.Background()
	public := s.client(nil)

	manifest := []byte(`{"name":"model","version":"1"}`)
	stored, err := public.StoreContent(ctx, manifest, interfaces.ManifestType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ManifestHash(manifest), stored.ManifestHash)
	assert.Equal(t, interfaces.ComputeID(manifest).String(), stored.StorageID)

	fetched, err := public.FetchContent(ctx, interfaces.ComputeID(manifest), interfaces.ManifestType)
	require.NoError(t, err)
	assert.Equal(t, manifest, fetched)

	id, err := public.Registry().SubmitRequest(ctx, common.Hash(interfaces.ComputeID(manifest)))
	require.NoError(t, err)

	req, err := public.Registry().GetRequest(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.True(t, req.State.IsPending())

	att, sig := s.attest(t, id, trustedHash)
	state, err := public.Registry().ProcessVerification(ctx, id, att, sig)
	require.NoError(t, err)
	assert.Equal(t, interfaces.StateVerified, state.Kind)

	count, err := testutil.GatherAndCount(s.promReg, "test_verification_verdicts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	details := interfaces.CertificateDetails{
		StorageID:       stored.StorageID,
		ManifestHash:    stored.ManifestHash,
		AttestationHash: "0x01",
	}
	relayer := s.client(s.relayerKey)
	owner := crypto.PubkeyToAddress(s.adminKey.PublicKey)

	result, err := relayer.Oracle().VerifyAndMint(ctx, relayer.Address(), owner, id, details)
	require.NoError(t, err)
	assert.True(t, result.ContentVerified)
	assert.True(t, result.CertificateMinted)

	cert, err := public.Certificate(ctx, result.CertificateID)
	require.NoError(t, err)
	assert.Equal(t, owner, cert.Creator)
	assert.Equal(t, details.ManifestHash, cert.ManifestHash)

	cert, err = public.CertificateByManifest(ctx, details.ManifestHash)
	require.NoError(t, err)
	assert.Equal(t, result.CertificateID, cert.ID)

	t.Run("second mint for the same manifest", func(t *testing.T) {
		result, err := relayer.Oracle().VerifyAndMint(ctx, relayer.Address(), owner, id, details)
		require.NoError(t, err)
		assert.True(t, result.ContentVerified)
		assert.False(t, result.CertificateMinted)
		assert.NotEmpty(t, result.MintError)
	})

	t.Run("unapproved relayer", func(t *testing.T) {
		other := s.client(s.adminKey)
		_, err := other.Oracle().VerifyAndMint(ctx, other.Address(), owner, id, details)
		require.ErrorIs(t, err, interfaces.ErrUnauthorizedSigner)
	})

	t.Run("events", func(t *testing.T) {
		events, err := public.Events(ctx, "VerifyAndMint", 0)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("missing certificate", func(t *testing.T) {
		_, err := public.Certificate(ctx, 999)
		require.ErrorIs(t, err, interfaces.ErrCertificateNotFound)
	})
}

func TestRejectedAttestationIsNotAnError(t *testing.T) {
	s := startServer(t)
	s.bootstrap(t)
	ctx := context.Background()
	public := s.client(nil)

	id, err := public.Registry().SubmitRequest(ctx, common.Hash{0x01})
	require.NoError(t, err)

	att, sig := s.attest(t, id, interfaces.TeeHash{0x77})
	state, err := public.Registry().ProcessVerification(ctx, id, att, sig)
	require.NoError(t, err)
	assert.Equal(t, interfaces.StateRejected, state.Kind)
	assert.NotEmpty(t, state.Reason)

	_, err = public.Registry().ProcessVerification(ctx, id, att, sig)
	require.ErrorIs(t, err, interfaces.ErrAlreadyProcessed)

	req, err := public.Registry().GetRequest(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, req)
}

func TestOracleErrorsMapToStatus(t *testing.T) {
	mockOracle := new(oracle.MockOracle)
	router := newRouter(t, Dependencies{Oracle: mockOracle})
	srv := httptest.NewServer(router)
	defer srv.Close()
	ctx := context.Background()
	c := clients.NewClient(srv.URL, nil)

	mockOracle.On("VerifyTeeHash", mock.Anything, interfaces.TeeHash{0x01}).Return(interfaces.ErrRegistryCallFailed)
	mockOracle.On("VerifyTeeHash", mock.Anything, interfaces.TeeHash{0x02}).Return(interfaces.ErrTeeNotVerified)
	mockOracle.On("VerifyTeeHash", mock.Anything, interfaces.TeeHash{0x03}).Return(errors.New("boom"))

	var apiErr *clients.APIError

	err := c.Oracle().VerifyTeeHash(ctx, interfaces.TeeHash{0x01})
	require.ErrorIs(t, err, interfaces.ErrRegistryCallFailed)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)

	err = c.Oracle().VerifyTeeHash(ctx, interfaces.TeeHash{0x02})
	require.ErrorIs(t, err, interfaces.ErrTeeNotVerified)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	err = c.Oracle().VerifyTeeHash(ctx, interfaces.TeeHash{0x03})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.NotContains(t, apiErr.Message, "boom")

	mockOracle.AssertExpectations(t)
}

func TestContentWithoutBackend(t *testing.T) {
	router := newRouter(t, Dependencies{})
	srv := httptest.NewServer(router)
	defer srv.Close()

	_, err := clients.NewClient(srv.URL, nil).StoreContent(context.Background(), []byte("x"), interfaces.BlobType)
	var apiErr *clients.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestHealthAndDrain(t *testing.T) {
	srv := httptest.NewServer(newRouter(t, Dependencies{}))
	defer srv.Close()

	status := func(path string) int {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, status("/livez"))
	assert.Equal(t, http.StatusOK, status("/readyz"))
	assert.Equal(t, http.StatusOK, status("/drain"))
	assert.Equal(t, http.StatusServiceUnavailable, status("/readyz"))
	assert.Equal(t, http.StatusOK, status("/undrain"))
	assert.Equal(t, http.StatusOK, status("/readyz"))
}
