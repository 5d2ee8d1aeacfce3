package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder("test", reg)
	require.NoError(t, err)

	r.ObserveCall("registry", "add_tee_hash", "ok", time.Millisecond)
	r.ObserveCall("registry", "add_tee_hash", "error", time.Millisecond)
	r.ObserveCall("registry", "add_tee_hash", "ok", time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(r.calls.WithLabelValues("registry", "add_tee_hash", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.calls.WithLabelValues("registry", "add_tee_hash", "error")))

	_, err = NewRecorder("test", reg)
	require.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, err := New("provenance", ":0")
	require.NoError(t, err)
	srv.Recorder.ObserveCall("oracle", "verify_and_mint", "ok", time.Millisecond)
	srv.Recorder.ObserveRequest("/api/requests", "200")

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `provenance_ledger_calls_total{contract="oracle",function="verify_and_mint",outcome="ok"} 1`)
	require.Contains(t, string(body), `provenance_http_requests_total{code="200",route="/api/requests"} 1`)
}
