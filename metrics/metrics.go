// Package metrics exposes ledger call counters and latencies in the
// Prometheus text format on a dedicated listener.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/tee-provenance-registry/host"
)

// Recorder counts ledger calls by contract, function and outcome. It is
// installed as the ledger's call observer.
type Recorder struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	verdicts *prometheus.CounterVec
	mints    *prometheus.CounterVec
}

var _ host.CallObserver = (*Recorder)(nil)

func NewRecorder(namespace string, reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_calls_total",
			Help:      "Top-level ledger calls by contract, function and outcome.",
		}, []string{"contract", "function", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_call_duration_seconds",
			Help:      "Duration of top-level ledger calls including commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"contract", "function"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_verdicts_total",
			Help:      "Processed verification requests by resulting state and rejection reason.",
		}, []string{"state", "reason"}),
		mints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verify_and_mint_total",
			Help:      "Verify-and-mint outcomes.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{r.calls, r.duration, r.requests, r.verdicts, r.mints} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ObserveCall(contract, function, outcome string, duration time.Duration) {
	r.calls.WithLabelValues(contract, function, outcome).Inc()
	r.duration.WithLabelValues(contract, function).Observe(duration.Seconds())
}

func (r *Recorder) ObserveRequest(route string, code string) {
	r.requests.WithLabelValues(route, code).Inc()
}

func (r *Recorder) ObserveVerdict(state, reason string) {
	r.verdicts.WithLabelValues(state, reason).Inc()
}

// ObserveMint records one verify-and-mint result: "minted", "mint_failed"
// or "unverified".
func (r *Recorder) ObserveMint(outcome string) {
	r.mints.WithLabelValues(outcome).Inc()
}

// MetricsServer serves a private registry on /metrics.
type MetricsServer struct {
	*http.Server
	Recorder *Recorder
}

func New(namespace, listenAddr string) (*MetricsServer, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	recorder, err := NewRecorder(namespace, reg)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &MetricsServer{
		Server: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Recorder: recorder,
	}, nil
}
