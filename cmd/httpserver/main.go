package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/tee-provenance-registry/cmd/flags"
	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/httpserver"
	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/ruteri/tee-provenance-registry/ledgerdb"
	"github.com/ruteri/tee-provenance-registry/metrics"
	"github.com/ruteri/tee-provenance-registry/node"
	"github.com/ruteri/tee-provenance-registry/storage"
	"github.com/urfave/cli/v2"
)

const metricsNamespace = "tee_provenance"

var flagListenAddr = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}
var flagDBPath = &cli.StringFlag{
	Name:  "db-path",
	Usage: "SQLite ledger database, in-memory ledger if empty",
}
var flagRequestTTL = &cli.DurationFlag{
	Name:  "request-ttl",
	Value: 24 * time.Hour,
	Usage: "how long verification requests stay readable",
}
var flagPruneInterval = &cli.DurationFlag{
	Name:  "prune-interval",
	Value: 10 * time.Minute,
	Usage: "how often expired ledger entries are removed, 0 to disable",
}
var flagStorage = &cli.StringSliceFlag{
	Name:  "storage",
	Usage: "content archive backend URI (file://, s3://, ipfs://, vault://, github://), repeatable",
}
var flagBootstrap = &cli.BoolFlag{
	Name:  "bootstrap",
	Usage: "initialize the contracts on startup",
}
var flagAdminAddress = &cli.StringFlag{
	Name:  "admin-address",
	Usage: "registry and oracle admin, required with --bootstrap",
}

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Serve the TEE trust registry, certificate ledger and verification oracle",
		Flags: append([]cli.Flag{
			flagListenAddr,
			flagDBPath,
			flagRequestTTL,
			flagPruneInterval,
			flagStorage,
			flagBootstrap,
			flagAdminAddress,
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openLedger(dbPath string, observer host.CallObserver, logger *slog.Logger) (*host.Ledger, error) {
	cfg := &host.Config{Log: logger, Observer: observer}
	if dbPath != "" {
		store, err := ledgerdb.NewStore(dbPath)
		if err != nil {
			return nil, err
		}
		cfg.Backend = store
		logger.Info("Using SQLite ledger", "path", dbPath)
	} else {
		logger.Warn("Using in-memory ledger, state is lost on restart")
	}
	return host.NewLedger(cfg), nil
}

func openContent(uris []string, logger *slog.Logger) (interfaces.StorageBackend, error) {
	if len(uris) == 0 {
		logger.Warn("No storage configured, content routes are disabled")
		return nil, nil
	}
	locs := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		loc, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid storage %q: %w", uri, err)
		}
		locs = append(locs, loc)
	}
	return storage.NewStorageBackendFactory(logger).CreateMultiBackend(locs)
}

func pruneLoop(ctx context.Context, ledger *host.Ledger, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ledger.Prune(ctx)
			if err != nil {
				logger.Error("Pruning expired entries failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("Pruned expired entries", "count", n)
			}
		}
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flagListenAddr.Name))

	metricsSrv, err := metrics.New(metricsNamespace, cfg.MetricsAddr)
	if err != nil {
		logger.Error("Failed to create metrics server", "err", err)
		return err
	}

	ledger, err := openLedger(cCtx.String(flagDBPath.Name), metricsSrv.Recorder, logger)
	if err != nil {
		logger.Error("Failed to open ledger", "err", err)
		return err
	}
	defer ledger.Close()

	ttl := uint64(cCtx.Duration(flagRequestTTL.Name) / time.Second)
	n, err := node.Deploy(ledger, ttl, logger)
	if err != nil {
		logger.Error("Failed to deploy contracts", "err", err)
		return err
	}

	if cCtx.Bool(flagBootstrap.Name) {
		raw := cCtx.String(flagAdminAddress.Name)
		if raw == "" {
			return errors.New("--admin-address is required with --bootstrap")
		}
		admin, err := interfaces.NewPrincipalFromHex(raw)
		if err != nil {
			return fmt.Errorf("invalid --admin-address: %w", err)
		}
		if err := n.Bootstrap(cCtx.Context, admin); err != nil {
			logger.Error("Bootstrap failed", "err", err)
			return err
		}
	}

	content, err := openContent(cCtx.StringSlice(flagStorage.Name), logger)
	if err != nil {
		logger.Error("Failed to configure storage", "err", err)
		return err
	}

	handler := httpserver.NewHandler(n.Dependencies(content, metricsSrv.Recorder), logger)
	server := httpserver.New(cfg, handler, metricsSrv)

	ctx, cancel := context.WithCancel(cCtx.Context)
	defer cancel()
	if interval := cCtx.Duration(flagPruneInterval.Name); interval > 0 {
		go pruneLoop(ctx, ledger, interval, logger)
	}

	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	cancel()
	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}
