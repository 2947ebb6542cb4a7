// Package cli builds the operator-facing command tree: validator/pool/key
// configuration plus the long-running daemon, grounded on the node
// manager's app.go/*cmds.go split between bootstrap and per-domain command
// groups.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/algostake/stakepool/internal/core"
	"github.com/algostake/stakepool/internal/daemon"
	"github.com/algostake/stakepool/internal/platform"
)

// App is the process-wide context every command action closes over, the
// same role RetiApp plays for the node manager: one struct constructed in
// Before, read from every leaf command.
type App struct {
	Logger   *slog.Logger
	Signer   platform.KeyStore
	NFD      *platform.NFDClient
	Registry *core.Registry
	Daemon   *daemon.Daemon

	// LocalPools holds the live Pool instances this node operates, keyed by
	// app id, since EpochBalanceUpdate and similar calls are methods on
	// Pool, not Registry.
	LocalPools map[uint64]*core.Pool

	State *platform.OperatorState

	// NodeNum is the node slot this process represents; zero means unset.
	NodeNum int

	// NextAppID allocates the synthetic app ids this single-process harness
	// hands to newly created pool instances, standing in for the app-create
	// transaction a real deployment would issue first.
	NextAppID uint64

	wg sync.WaitGroup
}

func (app *App) allocateAppID() uint64 {
	app.NextAppID++
	return app.NextAppID
}

// New builds the root cli.Command. callerState/registry/daemon are supplied
// by cmd/stakepoold's main, which owns process bootstrap; this stays a thin
// command-tree builder that only refers to App from here down.
func New(app *App) *cli.Command {
	return &cli.Command{
		Name:    "stakepoold",
		Usage:   "Configuration tool and background daemon for delegated-stake validator pools",
		Version: versionInfo(),
		Before: func(ctx context.Context, cmd *cli.Command) error {
			if envFile := cmd.String("envfile"); envFile != "" {
				if err := platform.LoadNamedEnvFile(envFile); err != nil {
					return fmt.Errorf("loading env file %s: %w", envFile, err)
				}
			}
			platform.LoadEnvForNetwork(app.Logger, cmd.String("network"))

			nodeNum := cmd.Uint("node")
			if nodeNum == 0 {
				setIntFromEnv(&nodeNum, "STAKEPOOL_NODENUM")
			}
			if nodeNum == 0 && cmd.Bool("usehostname") {
				if hostname, err := os.Hostname(); err == nil {
					parts := strings.Split(hostname, "-")
					if len(parts) > 1 {
						if n, err := strconv.ParseUint(parts[len(parts)-1], 10, 64); err == nil {
							nodeNum = n + 1
						}
					}
				}
			}
			app.NodeNum = int(nodeNum)
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "envfile",
				Usage:   "env file to load",
				Sources: cli.EnvVars("STAKEPOOL_ENVFILE"),
				Aliases: []string{"e"},
			},
			&cli.StringFlag{
				Name:    "network",
				Usage:   "network to use",
				Value:   "mainnet",
				Aliases: []string{"n"},
				Sources: cli.EnvVars("STAKEPOOL_NETWORK"),
			},
			&cli.UintFlag{
				Name:    "node",
				Usage:   "the node number (1+) this process represents",
				Sources: cli.EnvVars("STAKEPOOL_NODENUM"),
			},
			&cli.BoolFlag{
				Name:  "usehostname",
				Usage: "derive the node number from the pod hostname's numeric suffix (for Kubernetes statefulsets)",
				Value: false,
			},
		},
		Commands: []*cli.Command{
			GetDaemonCmdOpts(app),
			GetValidatorCmdOpts(app),
			GetPoolCmdOpts(app),
			GetKeyCmdOpts(app),
		},
	}
}

func checkConfigured(app *App) func(context.Context, *cli.Command) error {
	return func(ctx context.Context, cmd *cli.Command) error {
		state, err := platform.LoadOperatorState()
		if err != nil {
			return fmt.Errorf("validator not configured: %w", err)
		}
		app.State = state
		return nil
	}
}

func setIntFromEnv(val *uint64, envName string) {
	if strVal := os.Getenv(envName); strVal != "" {
		if intVal, err := strconv.ParseUint(strVal, 10, 64); err == nil {
			*val = intVal
		}
	}
}

func versionInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "(unknown)"
	}
	if idx := slices.IndexFunc(info.Settings, func(v debug.BuildSetting) bool { return v.Key == "vcs.revision" }); idx != -1 {
		rev := info.Settings[idx].Value
		if len(rev) > 7 {
			rev = rev[:7]
		}
		return rev
	}
	return "(unknown)"
}
