package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"

	"github.com/algostake/stakepool/internal/core"
	"github.com/algostake/stakepool/internal/platform"
)

func GetValidatorCmdOpts(app *App) *cli.Command {
	return &cli.Command{
		Name:    "validator",
		Aliases: []string{"v"},
		Usage:   "Configure validator options",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Initialize self as validator - creating configuration - should only be done ONCE, EVER",
				Action: initValidator(app),
			},
			{
				Name:   "info",
				Usage:  "Display info about the validator",
				Action: validatorInfo(app),
			},
			{
				Name:   "state",
				Usage:  "Display the validator's current aggregate state",
				Action: validatorState(app),
			},
		},
	}
}

func initValidator(app *App) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if _, err := platform.LoadOperatorState(); err == nil {
			result, _ := yesNo("A validator configuration already appears to exist, do you REALLY want to add an entirely new validator configuration")
			if result != "y" {
				return nil
			}
		} else {
			result, _ := yesNo("Validator not configured. Create brand new validator")
			if result != "y" {
				return nil
			}
		}
		return defineValidator(app)
	}
}

func defineValidator(app *App) error {
	owner, err := getAlgoAccount("Enter account address for the 'owner' of the validator", "")
	if err != nil {
		return err
	}
	ownerAddr, err := types.DecodeAddress(owner)
	if err != nil {
		return err
	}
	if !app.Signer.HasAccount(ownerAddr) {
		return fmt.Errorf("the mnemonic for this account isn't available locally, aborting")
	}

	manager, err := getAlgoAccount("Enter account address for the 'manager' of the validator", owner)
	if err != nil {
		return err
	}
	managerAddr, err := types.DecodeAddress(manager)
	if err != nil {
		return err
	}
	if !app.Signer.HasAccount(managerAddr) {
		return fmt.Errorf("the mnemonic for this account isn't available locally, aborting")
	}

	commission, err := getAlgoAccount("Enter the address that receives the validator commission each epoch payout", owner)
	if err != nil {
		return err
	}
	commissionAddr, err := types.DecodeAddress(commission)
	if err != nil {
		return err
	}

	payoutMins, err := getInt("Enter the payout frequency (in minutes)", int(core.MinPayoutMins), int(core.MinPayoutMins), int(core.MaxPayoutMins))
	if err != nil {
		return err
	}
	pctToValidator, err := getInt("Enter the payout percentage to the validator (six decimals, ie: 5% = 50000)", core.MinPctToValidator, core.MinPctToValidator, core.MaxPctToValidator)
	if err != nil {
		return err
	}
	minStake, err := getInt("Enter the minimum algo stake required to enter the pool (whole units)", 1000, 1, 1_000_000_000)
	if err != nil {
		return err
	}
	maxPerPool, err := getInt("Enter the maximum algo stake allowed per pool (whole units)", 20_000, 1, 100_000_000)
	if err != nil {
		return err
	}
	poolsPerNode, err := getInt("Enter the number of pools to allow per node", 3, 1, core.MaxPoolsPerNode)
	if err != nil {
		return err
	}

	cfg := core.ValidatorConfig{
		PayoutEveryXMins:           uint16(payoutMins),
		PctToValidator:             uint32(pctToValidator),
		ValidatorCommissionAddress: commissionAddr,
		MinEntryStake:              uint64(minStake) * core.OneWholeUnit,
		MaxAlgoPerPool:             uint64(maxPerPool) * core.OneWholeUnit,
		PoolsPerNode:               poolsPerNode,
		MaxNodes:                   core.MaxNodes,
	}

	vid, err := app.Registry.AddValidator(core.ExecContext{Sender: ownerAddr}, ownerAddr, managerAddr, 0, cfg)
	if err != nil {
		return err
	}

	platform.Infof(app.Logger, "new validator added, id %d", vid)
	return platform.SaveOperatorState(&platform.OperatorState{
		ValidatorID: vid,
		Owner:       owner,
		Manager:     manager,
		NodeNum:     app.NodeNum,
	})
}

func validatorInfo(app *App) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		state, err := platform.LoadOperatorState()
		if err != nil {
			return fmt.Errorf("validator not configured: %w", err)
		}
		v, ok := app.Registry.Store.GetValidator(state.ValidatorID)
		if !ok {
			return fmt.Errorf("validator %d is not known to this registry", state.ValidatorID)
		}
		fmt.Printf("validator %d: owner=%s manager=%s pools=%d commission=%d/%d\n",
			v.ID, v.Owner.String(), v.Manager.String(), v.State.NumPools, v.Config.PctToValidator, core.CommissionDenominator)
		return nil
	}
}

func validatorState(app *App) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		state, err := platform.LoadOperatorState()
		if err != nil {
			return fmt.Errorf("validator not configured: %w", err)
		}
		vstate, err := app.Registry.GetValidatorState(state.ValidatorID)
		if err != nil {
			return err
		}
		fmt.Printf("stakers=%d staked=%d rewardTokenHeldBack=%d\n", vstate.TotalStakers, vstate.TotalAlgoStaked, vstate.RewardTokenHeldBack)
		return nil
	}
}

func getInt(prompt string, defVal, minVal, maxVal int) (int, error) {
	validate := func(input string) error {
		value, err := strconv.Atoi(input)
		if err != nil {
			return err
		}
		if value < minVal || value > maxVal {
			return fmt.Errorf("value must be between %d and %d", minVal, maxVal)
		}
		return nil
	}
	result, err := (&promptui.Prompt{
		Label:    prompt,
		Default:  strconv.Itoa(defVal),
		Validate: validate,
	}).Run()
	if err != nil {
		return 0, err
	}
	value, _ := strconv.Atoi(result)
	return value, nil
}

func getAlgoAccount(prompt string, defVal string) (string, error) {
	return (&promptui.Prompt{
		Label:   prompt,
		Default: defVal,
		Validate: func(s string) error {
			_, err := types.DecodeAddress(s)
			return err
		},
	}).Run()
}

func yesNo(prompt string) (string, error) {
	return (&promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
	}).Run()
}
