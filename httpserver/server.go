package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruteri/tee-provenance-registry/api"
	"github.com/ruteri/tee-provenance-registry/metrics"
	"go.uber.org/atomic"
)

const defaultMaxBodySize = 8 << 20

type Server struct {
	cfg     *api.HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	handler    *Handler
}

// New wires the API router. metricsSrv may be nil, in which case requests
// are not counted and no metrics listener is started.
func New(cfg *api.HTTPServerConfig, handler *Handler, metricsSrv *metrics.MetricsServer) *Server {
	srv := &Server{
		cfg:        cfg,
		log:        cfg.Log,
		metricsSrv: metricsSrv,
		handler:    handler,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return srv
}

// Router returns the full API handler.
func (srv *Server) Router() http.Handler {
	h := srv.handler
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(srv.limitBody)

	mux.Group(func(r chi.Router) {
		r.Use(srv.httpLogger, srv.countRequests)

		r.Get("/api/registry/admin", h.HandleGetAdmin)
		r.Get("/api/registry/providers/{key}", h.HandleHasProvider)
		r.Get("/api/registry/tee-hashes/{hash}", h.HandleHasTeeHash)

		r.Post("/api/requests", h.HandleSubmitRequest)
		r.Get("/api/requests/{id}", h.HandleGetRequest)
		r.Post("/api/requests/{id}/attestation", h.HandleProcessAttestation)

		r.Post("/api/oracle/verify-tee-hash", h.HandleVerifyTeeHash)
		r.Post("/api/oracle/verify-attestation", h.HandleVerifyAttestation)
		r.Get("/api/oracle/providers/{address}", h.HandleIsRelayer)

		r.Get("/api/certificates/{id}", h.HandleGetCertificate)
		r.Get("/api/certificates/by-manifest/{hash}", h.HandleGetCertificateByManifest)

		r.Post("/api/content", h.HandleStoreContent)
		r.Get("/api/content/{id}", h.HandleFetchContent)

		r.Get("/api/events", h.HandleEvents)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSignature)

			r.Post("/api/registry/initialize", h.HandleInitializeRegistry)
			r.Post("/api/registry/providers/{key}", h.HandleAddProvider)
			r.Delete("/api/registry/providers/{key}", h.HandleRemoveProvider)
			r.Post("/api/registry/tee-hashes/{hash}", h.HandleAddTeeHash)
			r.Delete("/api/registry/tee-hashes/{hash}", h.HandleRemoveTeeHash)

			r.Post("/api/provenance/initialize", h.HandleInitializeProvenance)

			r.Post("/api/oracle/initialize", h.HandleInitializeOracle)
			r.Post("/api/oracle/providers/{address}", h.HandleApproveRelayer)
			r.Delete("/api/oracle/providers/{address}", h.HandleRevokeRelayer)
			r.Post("/api/oracle/verify-and-mint", h.HandleVerifyAndMint)
		})
	})

	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger).Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

func (srv *Server) limitBody(next http.Handler) http.Handler {
	limit := srv.cfg.MaxBodySize
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

// countRequests labels requests by route pattern so path parameters do not
// explode metric cardinality.
func (srv *Server) countRequests(next http.Handler) http.Handler {
	if srv.metricsSrv == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		srv.metricsSrv.Recorder.ObserveRequest(route, strconv.Itoa(ww.Status()))
	})
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already draining"})
		return
	}
	srv.log.Info("Server marked as not ready")
	writeJSON(w, http.StatusOK, map[string]string{"status": "draining"})
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already ready"})
		return
	}
	srv.log.Info("Server marked as ready")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (srv *Server) RunInBackground() {
	if srv.metricsSrv != nil && srv.cfg.MetricsAddr != "" {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown marks the server not ready, waits out the drain period so load
// balancers stop routing to it, then stops both listeners.
func (srv *Server) Shutdown() {
	if srv.isReady.Swap(false) && srv.cfg.DrainDuration > 0 {
		srv.log.Info("Draining before shutdown", "duration", srv.cfg.DrainDuration)
		time.Sleep(srv.cfg.DrainDuration)
	}

	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}

	if srv.metricsSrv != nil && srv.cfg.MetricsAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()
		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}
