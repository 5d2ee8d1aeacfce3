package flags

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/ruteri/tee-provenance-registry/api"
	"github.com/ruteri/tee-provenance-registry/api/clients"
	"github.com/ruteri/tee-provenance-registry/common"
	"github.com/ruteri/tee-provenance-registry/discovery"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
		MaxBodySize:              cCtx.Int64(MaxBodyFlag.Name),
	}
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "tee-provenance-registry",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics, empty to disable",
}
var MaxBodyFlag = &cli.Int64Flag{
	Name:  "max-body-bytes",
	Value: 8 << 20,
	Usage: "maximum accepted request body size",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var CommonFlags = append([]cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
	MaxBodyFlag,
}, LogFlags...)

var ServerURLFlag = &cli.StringFlag{
	Name:    "server-url",
	Value:   "http://127.0.0.1:8080",
	Usage:   "registry API base URL",
	EnvVars: []string{"REGISTRY_URL"},
}
var ServerSRVFlag = &cli.StringFlag{
	Name:  "server-srv",
	Usage: "resolve the registry API through this DNS SRV name instead of --server-url",
}
var NameserverFlag = &cli.StringFlag{
	Name:  "nameserver",
	Value: discovery.DefaultNameserver,
	Usage: "DNS server used for --server-srv lookups",
}
var SigningKeyFlag = &cli.StringFlag{
	Name:    "signing-key",
	Usage:   "hex secp256k1 private key used to sign requests",
	EnvVars: []string{"REGISTRY_SIGNING_KEY"},
}
var SigningKeyFileFlag = &cli.StringFlag{
	Name:  "signing-key-file",
	Usage: "file holding the hex secp256k1 private key used to sign requests",
}

var ClientFlags = append([]cli.Flag{
	ServerURLFlag,
	ServerSRVFlag,
	NameserverFlag,
	SigningKeyFlag,
	SigningKeyFileFlag,
}, LogFlags...)

var ErrNoSigningKey = errors.New("no signing key: set --signing-key or --signing-key-file")

// SigningKey loads the request signing key. It returns ErrNoSigningKey when
// neither flag is set.
func SigningKey(cCtx *cli.Context) (*ecdsa.PrivateKey, error) {
	raw := cCtx.String(SigningKeyFlag.Name)
	if path := cCtx.String(SigningKeyFileFlag.Name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read signing key: %w", err)
		}
		raw = string(data)
	}
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if raw == "" {
		return nil, ErrNoSigningKey
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}
	return key, nil
}

// ServerURL resolves the API base URL, through DNS SRV when --server-srv is set.
func ServerURL(cCtx *cli.Context) (string, error) {
	name := cCtx.String(ServerSRVFlag.Name)
	if name == "" {
		return cCtx.String(ServerURLFlag.Name), nil
	}
	resolver := discovery.NewResolver(cCtx.String(NameserverFlag.Name))
	return resolver.ResolveURL(cCtx.Context, name, "http")
}

// NewClient builds an API client. The key is optional unless required is
// set; commands that only read can run without one.
func NewClient(cCtx *cli.Context, required bool) (*clients.Client, error) {
	baseURL, err := ServerURL(cCtx)
	if err != nil {
		return nil, err
	}
	key, err := SigningKey(cCtx)
	if errors.Is(err, ErrNoSigningKey) && !required {
		key, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	return clients.NewClient(baseURL, key), nil
}
