package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/algostake/stakepool/internal/core"
	"github.com/algostake/stakepool/internal/platform"
)

func GetKeyCmdOpts(app *App) *cli.Command {
	return &cli.Command{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "Participation key related commands",
		Before:  checkConfigured(app),
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List the simulated participation key state of this node's pools",
				Action:  keysList(app),
			},
			{
				Name:  "online",
				Usage: "Generate fresh participation key material and bring a pool's account online",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "pool", Usage: "pool id (the number in 'pool list')", Required: true},
				},
				Action: keyOnline(app),
			},
		},
	}
}

func keysList(app *App) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		for _, lp := range app.State.Pools {
			pool, ok := app.LocalPools[lp.PoolAppID]
			if !ok {
				continue
			}
			state := pool.Store.State()
			fmt.Printf("pool %d: algodVer=%q lastPayout=%d\n", state.PoolID, state.AlgodVer, state.LastPayout)
		}
		return nil
	}
}

func keyOnline(app *App) cli.ActionFunc {
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
		owner, manager, err := app.Registry.GetOwnerAndManager(app.State.ValidatorID)
		if err != nil {
			return err
		}
		votePK, selectionPK, stateProofPK, err := platform.GenerateParticipationKeyMaterial()
		if err != nil {
			return err
		}
		_, err = pool.GoOnline(core.ExecContext{Sender: manager, AppID: pool.AppID}, owner, manager,
			votePK, selectionPK, stateProofPK, 0, 0, 0)
		if err != nil {
			return err
		}
		platform.Infof(app.Logger, "pool %d participation key went online", poolID)
		return nil
	}
}
