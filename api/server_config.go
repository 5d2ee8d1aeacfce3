package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig contains all configuration parameters for the HTTP server.
type HTTPServerConfig struct {
	// ListenAddr is the address and port the API listens on.
	ListenAddr string

	// MetricsAddr is the address of the Prometheus listener. Empty disables it.
	MetricsAddr string

	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /drain keeps the server up but not ready, so
	// load balancers can take it out of rotation.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds how long in-flight requests may run
	// during shutdown.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxBodySize caps request bodies, including uploaded content.
	MaxBodySize int64
}
