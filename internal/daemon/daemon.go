// Package daemon runs the unattended background loop an operator node keeps
// alive: periodically trying an epoch payout on every pool it manages and
// refreshing its local operator state, grounded on the node manager's own
// daemon.go/KeyWatcher loop and the jittered-retry plumbing of refetchConfig.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mailgun/holster/v4/syncutil"
	"github.com/ssgreg/repeat"

	"github.com/algostake/stakepool/internal/core"
	"github.com/algostake/stakepool/internal/platform"
)

// OnlineStakeSource reports the network's current total online stake, the
// figure epochBalanceUpdate needs to evaluate the protocol-wide validator
// stake cap. A live node would read this from consensus; this core has
// nothing underneath it to ask, so the daemon takes it as an injected
// collaborator rather than hardcoding a number.
type OnlineStakeSource func() uint64

// ManagedPool is one pool this node's operator is responsible for sweeping.
type ManagedPool struct {
	NodeID int
	Pool   *core.Pool
}

type Daemon struct {
	logger      *slog.Logger
	registry    *core.Registry
	onlineStake OnlineStakeSource

	mu    sync.RWMutex
	pools []ManagedPool

	sweepEvery time.Duration
}

func New(logger *slog.Logger, registry *core.Registry, onlineStake OnlineStakeSource, sweepEvery time.Duration) *Daemon {
	return &Daemon{
		logger:      logger,
		registry:    registry,
		onlineStake: onlineStake,
		sweepEvery:  sweepEvery,
	}
}

// SetManagedPools replaces the set of pools this node sweeps, called after
// the operator claims or adds a pool so the daemon picks it up on its next
// tick without a restart.
func (d *Daemon) SetManagedPools(pools []ManagedPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pools = pools
}

func (d *Daemon) managedPools() []ManagedPool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]ManagedPool, len(d.pools))
	copy(out, d.pools)
	return out
}

// Start runs the sweep loop until ctx is cancelled, registering against wg
// the same way the node manager's Daemon.start does for its KeyWatcher.
func (d *Daemon) Start(ctx context.Context, wg *sync.WaitGroup) {
	platform.Infof(d.logger, "starting epoch sweep daemon")
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer platform.Infof(d.logger, "exiting epoch sweep daemon")
		d.loop(ctx)
	}()
}

func (d *Daemon) loop(ctx context.Context) {
	d.sweepOnce(ctx)
	ticker := time.NewTicker(d.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweepOnce(ctx)
		}
	}
}

// sweepOnce fans the per-pool epochBalanceUpdate call out across a bounded
// worker pool, the same pattern evictions.go uses to check staker
// eligibility concurrently, rather than sweeping pools one at a time.
func (d *Daemon) sweepOnce(ctx context.Context) {
	pools := d.managedPools()
	if len(pools) == 0 {
		return
	}
	fanOut := syncutil.NewFanOut(minInt(len(pools), 20))
	for _, mp := range pools {
		fanOut.Run(func(val any) error {
			managed := val.(ManagedPool)
			return d.sweepPool(ctx, managed)
		}, mp)
	}
	for _, err := range fanOut.Wait() {
		if err != nil {
			platform.Warnf(d.logger, "epoch sweep error: %v", err)
		}
	}
}

func (d *Daemon) sweepPool(ctx context.Context, mp ManagedPool) error {
	balance := mp.Pool.Store.AccountBalance()
	_, err := mp.Pool.EpochBalanceUpdate(core.ExecContext{
		Sender:         mp.Pool.Self,
		Now:            time.Now().Unix(),
		AccountBalance: balance,
		AppID:          mp.Pool.AppID,
	}, d.onlineStake())
	if errors.Is(err, core.ErrEpochTooEarly) {
		// expected most ticks - the epoch simply hasn't elapsed yet.
		return nil
	}
	if errors.Is(err, core.ErrRewardTooSmall) {
		platform.Debugf(d.logger, "pool %d: reward too small to distribute this tick", mp.Pool.AppID)
		return nil
	}
	if err != nil {
		return err
	}
	platform.Infof(d.logger, "pool %d: epoch payout completed", mp.Pool.AppID)
	return nil
}

// RefetchOperatorState reloads the node's local operator state with
// jittered retry/backoff, the same shape as the node manager's
// refetchConfig, since the state file can be edited or replaced out from
// under a running daemon.
func RefetchOperatorState(logger *slog.Logger) (*platform.OperatorState, error) {
	var (
		state *platform.OperatorState
		err   error
	)
	err = repeat.Repeat(
		repeat.Fn(func() error {
			state, err = platform.LoadOperatorState()
			if err != nil {
				return repeat.HintTemporary(err)
			}
			return nil
		}),
		repeat.StopOnSuccess(),
		repeat.LimitMaxTries(10),
		repeat.FnOnError(func(err error) error {
			platform.Warnf(logger, "retrying load of operator state, error:%v", err)
			return err
		}),
		repeat.WithDelay(
			repeat.SetContextHintStop(),
			(&repeat.FullJitterBackoffBuilder{
				BaseDelay: 5 * time.Second,
				MaxDelay:  10 * time.Second,
			}).Set(),
		),
	)
	return state, err
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
