package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/urfave/cli/v3"

	"github.com/algostake/stakepool/internal/core"
	"github.com/algostake/stakepool/internal/daemon"
	"github.com/algostake/stakepool/internal/platform"
)

func GetPoolCmdOpts(app *App) *cli.Command {
	return &cli.Command{
		Name:    "pool",
		Aliases: []string{"p"},
		Usage:   "Add/configure staking pools for this node",
		Before:  checkConfigured(app),
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List pools on this node",
				Action:  poolsList(app),
			},
			{
				Name:    "ledger",
				Aliases: []string{"ld"},
				Usage:   "List the detailed staker ledger for a pool",
				Action:  poolLedger(app),
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "pool", Usage: "pool id (the number in 'pool list')", Required: true},
				},
			},
			{
				Name:    "add",
				Aliases: []string{"a"},
				Usage:   "Add a new staking pool to this node",
				Action:  poolAdd(app),
			},
			{
				Name:  "payout",
				Usage: "Force a manual epoch payout on a pool; normally the daemon does this automatically",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "pool", Usage: "pool id (the number in 'pool list')", Required: true},
				},
				Action: payoutPool(app),
			},
			{
				Name:  "stake",
				Usage: "Add stake on behalf of a locally-signable account (mostly for testing)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "the staker account to send stake from", Required: true},
					&cli.UintFlag{Name: "amount", Usage: "the amount of whole algo to stake", Required: true},
				},
				Action: stakeAdd(app),
			},
		},
	}
}

func poolsList(app *App) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		pools, err := app.Registry.GetPools(app.State.ValidatorID)
		if err != nil {
			return err
		}
		out := new(strings.Builder)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "Pool (*=local)\tApp ID\tStakers\tStaked\t")
		for i, p := range pools {
			local := ""
			if _, ok := app.LocalPools[p.PoolAppID]; ok {
				local = " (*)"
			}
			fmt.Fprintf(tw, "%d%s\t%d\t%d\t%d\t\n", i+1, local, p.PoolAppID, p.TotalStakers, p.TotalAlgoStaked)
		}
		tw.Flush()
		fmt.Print(out.String())
		return nil
	}
}

func poolLedger(app *App) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		poolID := cmd.Uint("pool")
		pools, err := app.Registry.GetPools(app.State.ValidatorID)
		if err != nil {
			return err
		}
		if poolID == 0 || poolID > uint64(len(pools)) {
			return fmt.Errorf("invalid pool id")
		}
		pool, ok := app.LocalPools[pools[poolID-1].PoolAppID]
		if !ok {
			return fmt.Errorf("pool %d is not operated by this node", poolID)
		}
		out := new(strings.Builder)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "Account\tStaked\tTotal Rewarded\tReward Tokens\tEntry Time\t")
		for _, s := range pool.Store.Ledger() {
			if s.Account == types.ZeroAddress {
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n", s.Account.String(), s.Balance, s.TotalRewarded, s.RewardTokenBalance, s.EntryTime)
		}
		tw.Flush()
		fmt.Print(out.String())
		return nil
	}
}

func poolAdd(app *App) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		v, ok := app.Registry.Store.GetValidator(app.State.ValidatorID)
		if !ok {
			return fmt.Errorf("validator %d not known to this registry", app.State.ValidatorID)
		}
		if len(app.State.Pools) >= v.Config.PoolsPerNode {
			return fmt.Errorf("this node has already reached its pools-per-node limit of %d", v.Config.PoolsPerNode)
		}
		ownerAddr, managerAddr := v.Owner, v.Manager
		signer, ok := app.Signer.FindFirstSigner([]types.Address{ownerAddr, managerAddr})
		if !ok {
			return fmt.Errorf("neither owner nor manager address for this validator has local keys present")
		}

		newAppID := app.allocateAppID()
		mbr := app.Registry.GetMbrAmounts(app.State.ValidatorID).AddPoolMbr
		key, _, err := app.Registry.AddPool(core.ExecContext{Sender: signer}, mbr, app.State.ValidatorID, newAppID)
		if err != nil {
			return err
		}

		pool := core.NewPool(core.NewMemPoolStore(), newAppID, app.Registry)
		app.Registry.RegisterPool(pool)
		if err := pool.CreateApplication(app.Registry.AppID, app.State.ValidatorID, key.PoolID, v.Config.MinEntryStake, v.Config.MaxAlgoPerPool); err != nil {
			return err
		}
		needsOptIn := key.PoolID == 1 && v.Config.RewardTokenID != 0
		initMbr := core.GetMbrAmounts(needsOptIn).PoolInitMbr
		if _, err := pool.InitStorage(core.ExecContext{Now: time.Now().Unix()}, initMbr, v.Config.RewardTokenID, false); err != nil {
			return err
		}

		app.LocalPools[newAppID] = pool
		app.State.Pools = append(app.State.Pools, platform.LocalPool{NodeID: app.NodeNum, PoolAppID: newAppID})
		syncManagedPools(app)

		platform.Infof(app.Logger, "added new pool %+v", key)
		return platform.SaveOperatorState(app.State)
	}
}

func payoutPool(app *App) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		poolID := cmd.Uint("pool")
		pools, err := app.Registry.GetPools(app.State.ValidatorID)
		if err != nil {
			return err
		}
		if poolID == 0 || poolID > uint64(len(pools)) {
			return fmt.Errorf("invalid pool id")
		}
		pool, ok := app.LocalPools[pools[poolID-1].PoolAppID]
		if !ok {
			return fmt.Errorf("pool %d is not operated by this node", poolID)
		}
		_, err = pool.EpochBalanceUpdate(core.ExecContext{
			Sender:         pool.Self,
			Now:            time.Now().Unix(),
			AccountBalance: pool.Store.AccountBalance(),
			AppID:          pool.AppID,
		}, 0)
		return err
	}
}

func stakeAdd(app *App) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		stakerAddr, err := types.DecodeAddress(cmd.String("from"))
		if err != nil {
			return err
		}
		amount := cmd.Uint("amount") * core.OneWholeUnit
		key, _, err := app.Registry.AddStake(core.ExecContext{Sender: stakerAddr, Now: time.Now().Unix()}, amount, app.State.ValidatorID)
		if err != nil {
			return err
		}
		platform.Infof(app.Logger, "stake added into pool %d", key.PoolID)
		return nil
	}
}

// syncManagedPools tells the daemon which live Pool instances to sweep,
// called whenever the local pool set changes.
func syncManagedPools(app *App) {
	if app.Daemon == nil {
		return
	}
	managed := make([]daemon.ManagedPool, 0, len(app.State.Pools))
	for _, lp := range app.State.Pools {
		if pool, ok := app.LocalPools[lp.PoolAppID]; ok {
			managed = append(managed, daemon.ManagedPool{NodeID: lp.NodeID, Pool: pool})
		}
	}
	app.Daemon.SetManagedPools(managed)
}
