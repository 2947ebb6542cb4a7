package core

import (
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Pool is one StakingPool instance: the authoritative per-staker ledger for
// this pool, plus (for pool #1 of a validator with a reward token) custody
// of that token. See §4.2.
type Pool struct {
	Store    PoolStore
	AppID    uint64
	Self     types.Address
	Registry *Registry
}

func NewPool(store PoolStore, appID uint64, registry *Registry) *Pool {
	return &Pool{Store: store, AppID: appID, Self: crypto.GetApplicationAddress(appID), Registry: registry}
}

// CreateApplication is the one-shot constructor effect: either all five
// identity fields are zero (template instance, never staked into) or all
// five are set consistently.
func (p *Pool) CreateApplication(registryAppID, validatorID, poolID, minEntryStake, maxAlgoPerPool uint64) error {
	allZero := registryAppID == 0 && validatorID == 0 && poolID == 0 && minEntryStake == 0 && maxAlgoPerPool == 0
	allSet := registryAppID != 0 && validatorID != 0 && poolID != 0
	if !allZero && !allSet {
		return fmt.Errorf("%w: createApplication fields must be all zero (template) or all set", ErrInvalidConfig)
	}
	p.Store.SetState(PoolState{
		CreatorApp:    registryAppID,
		ValidatorID:   validatorID,
		PoolID:        poolID,
		MinEntryStake: minEntryStake,
		MaxStake:      maxAlgoPerPool,
	})
	return nil
}

// InitStorage allocates the staker ledger and, for pool #1 with a reward
// token configured, opts the pool into that asset. May be called exactly
// once, before the ledger exists.
func (p *Pool) InitStorage(ctx ExecContext, mbrPayment uint64, rewardTokenID uint64, ledgerAllocated bool) ([]Effect, error) {
	if ledgerAllocated {
		return nil, fmt.Errorf("%w: initStorage already called for this pool", ErrInvalidConfig)
	}
	state := p.Store.State()
	needsAssetOptIn := state.PoolID == 1 && rewardTokenID != 0
	required := GetMbrAmounts(needsAssetOptIn).PoolInitMbr
	if mbrPayment != required {
		return nil, fmt.Errorf("%w: initStorage requires exactly %d, got %d", ErrWrongAmount, required, mbrPayment)
	}
	p.Store.SetLedger(make([]StakedInfo, MaxStakersPerPool))
	state.LastPayout = ctx.Now
	state.MinBalance = required
	p.Store.SetState(state)
	p.Store.AddAccountBalance(int64(mbrPayment))

	var effects []Effect
	if needsAssetOptIn {
		p.Store.SetAssetBalance(rewardTokenID, 0)
		effects = append(effects, Effect{Kind: EffectAssetOptIn, From: p.Self, AssetID: rewardTokenID, Note: "primary pool opts into reward token"})
	}
	return effects, nil
}

// computedEntryTime offsets now forward by the platform's stake-visibility
// delay (§GLOSSARY "Entry time").
func computedEntryTime(now int64) int64 {
	return now + int64(StakeVisibilityDelayBlocks*AvgBlockTimeTenths/10)
}

// AddStake records a staker's deposit into the first matching or empty
// ledger slot. Only the registry may call this (§4.2).
func (p *Pool) AddStake(ctx ExecContext, amount uint64, staker types.Address) (int64, error) {
	if ctx.Sender != p.Registry.Self {
		return 0, fmt.Errorf("%w: addStake may only be called by the registry", ErrNotAuthorized)
	}
	if staker.IsZero() {
		return 0, fmt.Errorf("%w: staker must be a non-zero account", ErrInvalidConfig)
	}
	state := p.Store.State()
	if amount+state.Staked > state.MaxStake {
		return 0, fmt.Errorf("%w: %d would push pool total past %d", ErrExceedsMaxPerPool, amount, state.MaxStake)
	}

	ledger := p.Store.Ledger()
	entryTime := computedEntryTime(ctx.Now)
	emptyIdx := -1
	for i, s := range ledger {
		if s.Account == staker {
			ledger[i].Balance += amount
			ledger[i].EntryTime = entryTime
			state.Staked += amount
			p.Store.SetLedger(ledger)
			p.Store.SetState(state)
			p.Store.AddAccountBalance(int64(amount))
			return entryTime, nil
		}
		if s.isEmpty() && emptyIdx == -1 {
			emptyIdx = i
		}
	}
	if emptyIdx == -1 {
		return 0, ErrPoolFull
	}
	if amount < state.MinEntryStake {
		return 0, fmt.Errorf("%w: %d below minEntryStake %d", ErrBelowMinimum, amount, state.MinEntryStake)
	}
	ledger[emptyIdx] = StakedInfo{Account: staker, Balance: amount, EntryTime: entryTime}
	state.Staked += amount
	state.NumStakers++
	p.Store.SetLedger(ledger)
	p.Store.SetState(state)
	p.Store.AddAccountBalance(int64(amount))
	return entryTime, nil
}

// findStakerSlot returns the ledger index holding account, or -1.
func findStakerSlot(ledger []StakedInfo, account types.Address) int {
	for i, s := range ledger {
		if s.Account == account {
			return i
		}
	}
	return -1
}

func (p *Pool) key() PoolKey {
	state := p.Store.State()
	return PoolKey{ValidatorID: state.ValidatorID, PoolID: state.PoolID, PoolAppID: p.AppID}
}

// removeStakeAndTokens is the shared body of RemoveStake and ClaimTokens:
// it optionally reduces the staker's balance, always zeros and pays out
// their reward-token balance, enforces I8, and reports the result to the
// registry.
func (p *Pool) removeStakeAndTokens(ctx ExecContext, amountToUnstake uint64) (uint64, []Effect, error) {
	ledger := p.Store.Ledger()
	idx := findStakerSlot(ledger, ctx.Sender)
	if idx == -1 {
		return 0, nil, ErrAccountNotFound
	}
	slot := ledger[idx]
	if amountToUnstake == 0 {
		amountToUnstake = slot.Balance
	}
	if slot.Balance < amountToUnstake {
		return 0, nil, fmt.Errorf("%w: balance %d < requested %d", ErrInsufficientBalance, slot.Balance, amountToUnstake)
	}
	residual := slot.Balance - amountToUnstake
	state := p.Store.State()
	if residual != 0 && residual < state.MinEntryStake {
		return 0, nil, fmt.Errorf("%w: residual %d would be below minEntryStake %d; unstake it all instead", ErrBelowMinimum, residual, state.MinEntryStake)
	}

	var effects []Effect
	tokenRemoved := slot.RewardTokenBalance
	if tokenRemoved > 0 && state.PoolID == 1 {
		v, ok := p.Registry.Store.GetValidator(state.ValidatorID)
		if ok && v.Config.RewardTokenID != 0 {
			bal := p.Store.AssetBalance(v.Config.RewardTokenID)
			p.Store.SetAssetBalance(v.Config.RewardTokenID, bal-tokenRemoved)
			effects = append(effects, Effect{Kind: EffectAssetTransfer, From: p.Self, To: ctx.Sender, Amount: tokenRemoved, AssetID: v.Config.RewardTokenID})
		}
	}

	slot.Balance = residual
	slot.RewardTokenBalance = 0
	stakerRemoved := residual == 0
	if stakerRemoved {
		ledger[idx] = StakedInfo{}
		state.NumStakers--
	} else {
		ledger[idx] = slot
	}
	state.Staked -= amountToUnstake
	p.Store.SetLedger(ledger)
	p.Store.SetState(state)
	p.Store.AddAccountBalance(-int64(amountToUnstake))

	effects = append(effects, Effect{Kind: EffectPayment, From: p.Self, To: ctx.Sender, Amount: amountToUnstake})

	regEffects, err := p.Registry.StakeRemoved(ExecContext{Sender: p.Self, Now: ctx.Now}, p.key(), ctx.Sender, amountToUnstake, tokenRemoved, stakerRemoved, state.ValidatorID, state.PoolID)
	if err != nil {
		return 0, nil, err
	}
	effects = append(effects, regEffects...)
	return amountToUnstake, effects, nil
}

// RemoveStake withdraws amountToUnstake (0 meaning "all") from the caller's
// ledger slot, paying out any accrued reward-token balance alongside it.
func (p *Pool) RemoveStake(ctx ExecContext, amountToUnstake uint64) (uint64, []Effect, error) {
	return p.removeStakeAndTokens(ctx, amountToUnstake)
}

// ClaimTokens pays out only the caller's accrued reward-token balance,
// leaving their staked balance untouched.
func (p *Pool) ClaimTokens(ctx ExecContext) ([]Effect, error) {
	ledger := p.Store.Ledger()
	idx := findStakerSlot(ledger, ctx.Sender)
	if idx == -1 {
		return nil, ErrAccountNotFound
	}
	tokenRemoved := ledger[idx].RewardTokenBalance
	if tokenRemoved == 0 {
		return nil, nil
	}
	state := p.Store.State()
	var effects []Effect
	if state.PoolID == 1 {
		v, ok := p.Registry.Store.GetValidator(state.ValidatorID)
		if ok && v.Config.RewardTokenID != 0 {
			bal := p.Store.AssetBalance(v.Config.RewardTokenID)
			p.Store.SetAssetBalance(v.Config.RewardTokenID, bal-tokenRemoved)
			effects = append(effects, Effect{Kind: EffectAssetTransfer, From: p.Self, To: ctx.Sender, Amount: tokenRemoved, AssetID: v.Config.RewardTokenID})
		}
	}
	ledger[idx].RewardTokenBalance = 0
	p.Store.SetLedger(ledger)

	regEffects, err := p.Registry.StakeRemoved(ExecContext{Sender: p.Self, Now: ctx.Now}, p.key(), ctx.Sender, 0, tokenRemoved, false, state.ValidatorID, state.PoolID)
	if err != nil {
		return nil, err
	}
	return append(effects, regEffects...), nil
}

// PayTokenReward is the internal protocol method the registry calls on pool
// #1 to actually move tokens out of its custody (§4.1 stakeRemoved).
func (p *Pool) PayTokenReward(ctx ExecContext, staker types.Address, rewardTokenID, amount uint64) ([]Effect, error) {
	if ctx.Sender != p.Registry.Self {
		return nil, fmt.Errorf("%w: payTokenReward may only be called by the registry", ErrNotAuthorized)
	}
	state := p.Store.State()
	if state.PoolID != 1 {
		return nil, fmt.Errorf("%w: payTokenReward is only callable on pool #1", ErrNotAuthorized)
	}
	bal := p.Store.AssetBalance(rewardTokenID)
	p.Store.SetAssetBalance(rewardTokenID, bal-amount)
	return []Effect{{Kind: EffectAssetTransfer, From: p.Self, To: staker, Amount: amount, AssetID: rewardTokenID}}, nil
}

// ProxiedSetTokenPayoutRatio is called by a sibling pool on pool #1 to
// relay a token-ratio snapshot request to the registry (§4.2).
func (p *Pool) ProxiedSetTokenPayoutRatio(ctx ExecContext, caller PoolKey, callerSelfValidatorID, callerSelfPoolID uint64) (PoolTokenPayoutRatio, error) {
	state := p.Store.State()
	if state.PoolID != 1 {
		return PoolTokenPayoutRatio{}, fmt.Errorf("%w: proxiedSetTokenPayoutRatio is only callable on pool #1", ErrNotAuthorized)
	}
	v, ok := p.Registry.Store.GetValidator(state.ValidatorID)
	if !ok {
		return PoolTokenPayoutRatio{}, fmt.Errorf("%w: unknown validator id %d", ErrNotAuthorized, state.ValidatorID)
	}
	if err := AuthenticateSiblingPool(v, p.key(), caller, ctx.Sender, callerSelfValidatorID, callerSelfPoolID); err != nil {
		return PoolTokenPayoutRatio{}, err
	}
	return p.Registry.SetTokenPayoutRatio(ctx, state.ValidatorID)
}

// EpochBalanceUpdate is the heart of the system: gates on epoch elapsed,
// computes the algo/token reward pools (applying commission and the
// protocol stake-cap redirect), runs the two-pass proportional allocator,
// commits the result to the ledger, and reports the aggregate delta to the
// registry. onlineStake is the network-wide online stake total the
// protocol-cap check compares against; like participation keys, the
// chain's live online-stake figure is opaque to this core and supplied by
// the caller (§4.4).
func (p *Pool) EpochBalanceUpdate(ctx ExecContext, onlineStake uint64) ([]Effect, error) {
	state := p.Store.State()
	if state.MinBalance == 0 {
		return nil, fmt.Errorf("%w: pool has not completed initStorage", ErrInvalidConfig)
	}
	v, ok := p.Registry.Store.GetValidator(state.ValidatorID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown validator id %d", ErrInvalidConfig, state.ValidatorID)
	}
	epochSecs := int64(v.Config.PayoutEveryXMins) * 60
	if ctx.Now-state.LastPayout < epochSecs {
		return nil, fmt.Errorf("%w: %d seconds remain", ErrEpochTooEarly, epochSecs-(ctx.Now-state.LastPayout))
	}
	state.LastPayout = ctx.Now

	var ratio PoolTokenPayoutRatio
	if v.Config.RewardTokenID != 0 {
		if state.PoolID == 1 {
			r, err := p.Registry.SetTokenPayoutRatio(ctx, v.ID)
			if err != nil {
				return nil, err
			}
			ratio = r
		} else {
			pool1AppID := v.Pools[0].PoolAppID
			pool1, ok := p.Registry.pool(pool1AppID)
			if !ok {
				return nil, fmt.Errorf("%w: pool #1 (app %d) is not registered with this registry instance", ErrInvalidConfig, pool1AppID)
			}
			proxyCtx := ExecContext{Sender: p.Self, Now: ctx.Now, AppID: p.AppID}
			r, err := pool1.ProxiedSetTokenPayoutRatio(proxyCtx, p.key(), state.ValidatorID, state.PoolID)
			if err != nil {
				return nil, err
			}
			ratio = r
		}
	}

	if ctx.AccountBalance < state.Staked+state.MinBalance {
		return nil, fmt.Errorf("%w: pool balance %d below staked+minBalance floor", ErrInvariantViolation, ctx.AccountBalance)
	}
	algoReward := ctx.AccountBalance - state.Staked - state.MinBalance

	var effects []Effect
	var validatorPay uint64
	var sendToFeeSink bool
	maxAllowedStake := mulDivFloor([]uint64{onlineStake, p.Registry.MaxValidatorPctOfOnline}, []uint64{1000})
	if v.State.TotalAlgoStaked > maxAllowedStake {
		sendToFeeSink = true
		if algoReward > 0 {
			effects = append(effects, Effect{Kind: EffectPayment, From: p.Self, To: p.Registry.FeeSink, Amount: algoReward, Note: "protocol stake cap redirect"})
			p.Store.AddAccountBalance(-int64(algoReward))
		}
		algoReward = 0
	} else {
		validatorPay = mulDivFloor([]uint64{algoReward, uint64(v.Config.PctToValidator)}, []uint64{CommissionDenominator})
		if validatorPay > 0 {
			effects = append(effects, Effect{Kind: EffectPayment, From: p.Self, To: v.Config.ValidatorCommissionAddress, Amount: validatorPay, Note: "validator commission"})
			p.Store.AddAccountBalance(-int64(validatorPay))
		}
		algoReward -= validatorPay
	}

	var tokenReward uint64
	if v.Config.RewardTokenID != 0 {
		pool1AppID := v.Pools[0].PoolAppID
		var pool1AssetBalance uint64
		if state.PoolID == 1 {
			pool1AssetBalance = p.Store.AssetBalance(v.Config.RewardTokenID)
		} else {
			pool1, ok := p.Registry.pool(pool1AppID)
			if !ok {
				return nil, fmt.Errorf("%w: pool #1 (app %d) is not registered with this registry instance", ErrInvalidConfig, pool1AppID)
			}
			pool1AssetBalance = pool1.Store.AssetBalance(v.Config.RewardTokenID)
		}
		tokenAvailGlobal := pool1AssetBalance - v.State.RewardTokenHeldBack
		if tokenAvailGlobal >= v.Config.RewardPerPayout {
			tokenReward = mulDivFloor([]uint64{v.Config.RewardPerPayout, ratio.PoolPctOfWhole[state.PoolID-1]}, []uint64{PoolPctDenominator})
		}
	}
	// The pure-empty-payout gate only guards the path that would otherwise
	// credit stakers nothing; a fee-sink redirect has already disposed of
	// algoReward on its own and must still commit (lastPayout, the
	// redirect effect itself) rather than revert.
	if !sendToFeeSink && tokenReward == 0 && algoReward <= OneWholeUnit {
		return nil, ErrRewardTooSmall
	}

	ledger := p.Store.Ledger()
	credits, increasedStake, tokenPaidOut := allocateRewards(ledger, algoReward, tokenReward, state.Staked, ctx.Now, epochSecs)
	for _, c := range credits {
		ledger[c.index].Balance += c.algo
		ledger[c.index].TotalRewarded += c.algo
		ledger[c.index].RewardTokenBalance += c.token
	}
	state.Staked += increasedStake
	p.Store.SetLedger(ledger)
	p.Store.SetState(state)

	reportCtx := ExecContext{Sender: p.Self, Now: ctx.Now, AppID: p.AppID}
	if err := p.Registry.StakeUpdatedViaRewards(reportCtx, p.key(), increasedStake, tokenPaidOut, state.ValidatorID, state.PoolID); err != nil {
		return nil, err
	}

	promEpochPayouts.Inc()
	if validatorPay > 0 {
		promCommissionPaid.Add(float64(validatorPay) / 1e6)
	}
	return effects, nil
}

// GoOnline and GoOffline emit the platform's participation-key registration
// effects; the keys themselves are opaque to this core (§1 scope).
func (p *Pool) GoOnline(ctx ExecContext, owner, manager types.Address, votePK, selectionPK, stateProofPK []byte, voteFirst, voteLast, voteKeyDilution uint64) ([]Effect, error) {
	if ctx.Sender != owner && ctx.Sender != manager {
		return nil, fmt.Errorf("%w: goOnline requires owner or manager", ErrNotAuthorized)
	}
	return []Effect{{Kind: EffectKeyReg, From: p.Self, Note: fmt.Sprintf("voteFirst=%d voteLast=%d dilution=%d", voteFirst, voteLast, voteKeyDilution)}}, nil
}

func (p *Pool) GoOffline(ctx ExecContext, owner, manager types.Address) ([]Effect, error) {
	if ctx.Sender != owner && ctx.Sender != manager && ctx.Sender != p.Registry.Self {
		return nil, fmt.Errorf("%w: goOffline requires owner, manager, or the registry", ErrNotAuthorized)
	}
	return []Effect{{Kind: EffectKeyRegOffline, From: p.Self}}, nil
}

// UpdateAlgodVer and LinkToNFD update owner/manager-gated metadata.
func (p *Pool) UpdateAlgodVer(ctx ExecContext, owner, manager types.Address, version string) error {
	if ctx.Sender != owner && ctx.Sender != manager {
		return fmt.Errorf("%w: updateAlgodVer requires owner or manager", ErrNotAuthorized)
	}
	state := p.Store.State()
	state.AlgodVer = version
	p.Store.SetState(state)
	return nil
}

func (p *Pool) LinkToNFD(ctx ExecContext, owner, manager types.Address, nfdAppID uint64) ([]Effect, error) {
	if ctx.Sender != owner && ctx.Sender != manager {
		return nil, fmt.Errorf("%w: linkToNFD requires owner or manager", ErrNotAuthorized)
	}
	return []Effect{{Kind: EffectOpaqueAppCall, From: p.Self, AppID: nfdAppID, Note: "nfd verification"}}, nil
}
