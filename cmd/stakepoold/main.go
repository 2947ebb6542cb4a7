// Command stakepoold is the process entrypoint: it wires together the
// logging/config bootstrap, the in-memory validator registry, the operator
// CLI command tree, the epoch-sweep daemon, and a Prometheus /metrics
// endpoint, the same assembly role app.go/main.go play for the node
// manager.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/algostake/stakepool/internal/cli"
	"github.com/algostake/stakepool/internal/core"
	"github.com/algostake/stakepool/internal/daemon"
	"github.com/algostake/stakepool/internal/platform"
)

func main() {
	logger := platform.NewLogger(os.Stdout)
	platform.LoadEnv(logger)

	appID := envUint("STAKEPOOL_APPID", 1000)
	feeSink := envAddress("STAKEPOOL_FEESINK")

	registry := core.NewRegistry(core.NewMemRegistryStore(), appID, feeSink)

	signer := platform.NewLocalKeyStore(logger)
	nfd := platform.NewNFDClient(os.Getenv("STAKEPOOL_NFD_API"))

	onlineStake := envUint("STAKEPOOL_ONLINESTAKE", 0)
	sweepEvery := envDuration("STAKEPOOL_SWEEP_INTERVAL", time.Minute)
	epochDaemon := daemon.New(logger, registry, func() uint64 { return onlineStake }, sweepEvery)

	app := &cli.App{
		Logger:     logger,
		Signer:     signer,
		NFD:        nfd,
		Registry:   registry,
		Daemon:     epochDaemon,
		LocalPools: map[uint64]*core.Pool{},
		NextAppID:  appID + 1,
	}
	if state, err := platform.LoadOperatorState(); err == nil {
		app.State = state
	}

	if addr := os.Getenv("STAKEPOOL_METRICS_ADDR"); addr != "" {
		go serveMetrics(logger, addr)
	}

	if err := cli.New(app).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveMetrics(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	platform.Infof(logger, "serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		platform.Errorf(logger, "metrics server exited: %v", err)
	}
}

func envUint(name string, def uint64) uint64 {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envDuration(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envAddress(name string) types.Address {
	v := os.Getenv(name)
	if v == "" {
		return types.Address{}
	}
	addr, err := types.DecodeAddress(v)
	if err != nil {
		return types.Address{}
	}
	return addr
}
