package core

import (
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Registry is the singleton root of trust: the list of validators, their
// aggregate state, and the per-staker pool-membership index. It mediates
// stake placement and is the only party a pool trusts to report the other
// validator/pool state it needs (§4.1).
type Registry struct {
	Store RegistryStore
	AppID uint64
	Self  types.Address

	// FeeSink receives redirected rewards when a validator exceeds the
	// protocol-wide stake cap (§4.4).
	FeeSink types.Address
	// MaxValidatorPctOfOnline is the protocol-wide cap, in tenths of a
	// percent, on a validator's share of total online stake.
	MaxValidatorPctOfOnline uint64

	// pools indexes live Pool instances by app id so that registry
	// operations which must call back into a pool (stakeRemoved routing a
	// token payout through pool #1) can dispatch directly, modeling the
	// platform's synchronous inner-transaction call per §5.
	pools map[uint64]*Pool
}

func NewRegistry(store RegistryStore, appID uint64, feeSink types.Address) *Registry {
	return &Registry{
		Store:                   store,
		AppID:                   appID,
		Self:                    crypto.GetApplicationAddress(appID),
		FeeSink:                 feeSink,
		MaxValidatorPctOfOnline: DefaultMaxValidatorPctOfOnline,
		pools:                   make(map[uint64]*Pool),
	}
}

// RegisterPool associates a live Pool instance with its app id so the
// registry can dispatch cross-contract calls to it. Call this once after
// constructing the Pool that AddPool's caller spawned.
func (r *Registry) RegisterPool(p *Pool) {
	r.pools[p.AppID] = p
}

func (r *Registry) pool(appID uint64) (*Pool, bool) {
	p, ok := r.pools[appID]
	return p, ok
}

// GetProtocolConstraints returns the numeric bounds of §6/§8 so external
// callers don't have to hardcode them.
func (r *Registry) GetProtocolConstraints() ProtocolConstraints {
	return ProtocolConstraints{
		MinPayoutMins:           MinPayoutMins,
		MaxPayoutMins:           MaxPayoutMins,
		MinPctToValidator:       MinPctToValidator,
		MaxPctToValidator:       MaxPctToValidator,
		MaxNodes:                MaxNodes,
		MaxPoolsPerNode:         MaxPoolsPerNode,
		MaxStakersPerPool:       MaxStakersPerPool,
		MinEntryStake:           ProtocolMinEntryStake,
		MaxAlgoPerPool:          ProtocolMaxAlgoPerPool,
		MaxValidatorPctOfOnline: r.MaxValidatorPctOfOnline,
	}
}

// GetMbrAmounts exposes the MBR schedule (§4.1) to callers.
func (r *Registry) GetMbrAmounts(validatorID uint64) MbrAmounts {
	var rewardTokenConfigured bool
	if v, ok := r.Store.GetValidator(validatorID); ok {
		rewardTokenConfigured = v.Config.RewardTokenID != 0
	}
	return GetMbrAmounts(rewardTokenConfigured)
}

func validateConfig(cfg ValidatorConfig) error {
	if cfg.PayoutEveryXMins < MinPayoutMins || cfg.PayoutEveryXMins > MaxPayoutMins {
		return fmt.Errorf("%w: payoutEveryXMins %d out of range [%d,%d]", ErrInvalidConfig, cfg.PayoutEveryXMins, MinPayoutMins, MaxPayoutMins)
	}
	if cfg.PctToValidator < MinPctToValidator || cfg.PctToValidator > MaxPctToValidator {
		return fmt.Errorf("%w: pctToValidator %d out of range [%d,%d]", ErrInvalidConfig, cfg.PctToValidator, MinPctToValidator, MaxPctToValidator)
	}
	if cfg.ValidatorCommissionAddress.IsZero() {
		return fmt.Errorf("%w: validatorCommissionAddress must be non-zero", ErrInvalidConfig)
	}
	if cfg.MinEntryStake < ProtocolMinEntryStake {
		return fmt.Errorf("%w: minEntryStake %d below protocol minimum %d", ErrInvalidConfig, cfg.MinEntryStake, ProtocolMinEntryStake)
	}
	if cfg.MaxAlgoPerPool > ProtocolMaxAlgoPerPool {
		return fmt.Errorf("%w: maxAlgoPerPool %d exceeds protocol maximum %d", ErrInvalidConfig, cfg.MaxAlgoPerPool, ProtocolMaxAlgoPerPool)
	}
	if cfg.PoolsPerNode < 1 || cfg.PoolsPerNode > MaxPoolsPerNode {
		return fmt.Errorf("%w: poolsPerNode %d out of range [1,%d]", ErrInvalidConfig, cfg.PoolsPerNode, MaxPoolsPerNode)
	}
	if cfg.MaxNodes < 1 || cfg.MaxNodes > MaxNodes {
		return fmt.Errorf("%w: maxNodes %d out of range [1,%d]", ErrInvalidConfig, cfg.MaxNodes, MaxNodes)
	}
	return nil
}

// AddValidator validates cfg against the protocol bounds and appends a new
// validator record. See §4.1.
func (r *Registry) AddValidator(ctx ExecContext, owner, manager types.Address, nfdAppID uint64, cfg ValidatorConfig) (uint64, error) {
	if owner.IsZero() || manager.IsZero() {
		return 0, fmt.Errorf("%w: owner and manager must be non-zero accounts", ErrInvalidConfig)
	}
	if err := validateConfig(cfg); err != nil {
		return 0, err
	}
	id := r.Store.NumValidators() + 1
	v := &Validator{
		ID:       id,
		Owner:    owner,
		Manager:  manager,
		NFDAppID: nfdAppID,
		Config:   cfg,
	}
	r.Store.PutValidator(v)
	r.Store.SetNumValidators(id)
	promNumValidators.Set(float64(id))
	return id, nil
}

// AddPool appends a PoolSummary for a freshly spawned pool instance.
// newPoolAppID is the app id of the pool the caller already instantiated by
// cloning the template (the clone-and-construct step itself is the opaque
// platform effect described in §4.1; this method records the result).
func (r *Registry) AddPool(ctx ExecContext, mbrPayment, validatorID, newPoolAppID uint64) (PoolKey, []Effect, error) {
	v, ok := r.Store.GetValidator(validatorID)
	if !ok {
		return PoolKey{}, nil, fmt.Errorf("%w: unknown validator id %d", ErrInvalidConfig, validatorID)
	}
	if ctx.Sender != v.Owner && ctx.Sender != v.Manager {
		return PoolKey{}, nil, fmt.Errorf("%w: caller is neither owner nor manager", ErrNotAuthorized)
	}
	required := GetMbrAmounts(v.Config.RewardTokenID != 0).AddPoolMbr
	if mbrPayment != required {
		return PoolKey{}, nil, fmt.Errorf("%w: addPool requires exactly %d, got %d", ErrWrongAmount, required, mbrPayment)
	}
	maxPools := uint64(v.Config.MaxNodes * v.Config.PoolsPerNode)
	if v.State.NumPools >= maxPools {
		return PoolKey{}, nil, fmt.Errorf("%w: validator %d already has %d pools", ErrPoolCapExceeded, validatorID, v.State.NumPools)
	}

	nodeIdx := -1
	for i := 0; i < v.Config.MaxNodes; i++ {
		if len(v.Nodes[i].PoolAppIDs) < v.Config.PoolsPerNode {
			nodeIdx = i
			break
		}
	}
	if nodeIdx == -1 {
		return PoolKey{}, nil, fmt.Errorf("%w: no node slot available under current pools-per-node limit", ErrPoolCapExceeded)
	}

	poolID := v.State.NumPools + 1
	v.Pools = append(v.Pools, PoolSummary{
		NodeID:    uint64(nodeIdx + 1),
		PoolAppID: newPoolAppID,
	})
	v.Nodes[nodeIdx].PoolAppIDs = append(v.Nodes[nodeIdx].PoolAppIDs, newPoolAppID)
	v.State.NumPools++
	r.Store.PutValidator(v)
	promNumPools.Set(float64(v.State.NumPools))

	poolAddr := crypto.GetApplicationAddress(newPoolAppID)
	effects := []Effect{
		{Kind: EffectPayment, From: r.Self, To: poolAddr, Amount: mbrPayment, Note: "pool instance MBR funding"},
	}
	return PoolKey{ValidatorID: validatorID, PoolID: poolID, PoolAppID: newPoolAppID}, effects, nil
}

// FindPoolForStaker implements the deterministic pool-selection algorithm of
// §4.1: prefer a pool the staker is already in (if it still has room for
// amount); a staker who already holds a pool of this validator with no room
// gets the sentinel. Otherwise the first pool overall with room, else the
// sentinel.
func (r *Registry) FindPoolForStaker(validatorID uint64, staker types.Address, amount uint64) (PoolKey, error) {
	v, ok := r.Store.GetValidator(validatorID)
	if !ok {
		return PoolKey{}, fmt.Errorf("%w: unknown validator id %d", ErrInvalidConfig, validatorID)
	}

	if set, ok := r.Store.GetStakerPoolSet(staker); ok {
		hasEntryForValidator := false
		for _, key := range set.Entries {
			if key.IsSentinel() || key.ValidatorID != validatorID {
				continue
			}
			idx := key.PoolID - 1
			if idx >= uint64(len(v.Pools)) {
				continue
			}
			hasEntryForValidator = true
			if v.Pools[idx].TotalAlgoStaked+amount <= v.Config.MaxAlgoPerPool {
				return key, nil
			}
		}
		if hasEntryForValidator {
			// The staker already holds a pool of this validator and it has
			// no room; a second pool of the same validator is never used (I3).
			return PoolKey{ValidatorID: validatorID}, nil
		}
		// No existing entry under this validator (the staker's other slots
		// are with different validators) — fall through and treat this like
		// a first stake with validatorID.
	}

	if amount < v.Config.MinEntryStake {
		return PoolKey{}, fmt.Errorf("%w: amount %d below minEntryStake %d", ErrBelowMinimum, amount, v.Config.MinEntryStake)
	}
	for i, p := range v.Pools {
		if p.TotalAlgoStaked+amount <= v.Config.MaxAlgoPerPool {
			return PoolKey{ValidatorID: validatorID, PoolID: uint64(i + 1), PoolAppID: p.PoolAppID}, nil
		}
	}
	return PoolKey{ValidatorID: validatorID}, nil
}

// AddStake places a staker's payment with a pool chosen by
// FindPoolForStaker, deducting the one-time per-staker storage deposit on
// first stake. See §4.1.
func (r *Registry) AddStake(ctx ExecContext, paymentAmount, validatorID uint64) (PoolKey, []Effect, error) {
	v, ok := r.Store.GetValidator(validatorID)
	if !ok {
		return PoolKey{}, nil, fmt.Errorf("%w: unknown validator id %d", ErrInvalidConfig, validatorID)
	}

	set, hasSet := r.Store.GetStakerPoolSet(ctx.Sender)
	isFirstStake := !hasSet
	var deposit uint64
	if isFirstStake {
		deposit = GetMbrAmounts(v.Config.RewardTokenID != 0).AddStakerMbr
		if paymentAmount < deposit {
			return PoolKey{}, nil, fmt.Errorf("%w: payment %d does not cover first-stake deposit %d", ErrWrongAmount, paymentAmount, deposit)
		}
		set = &StakerPoolSet{}
	}
	forwardAmount := paymentAmount - deposit

	// findPoolForStaker must see the amount that will actually land in the
	// pool, not the raw payment, or the deposit would be double-counted
	// against the pool's maxAlgoPerPool ceiling.
	key, err := r.FindPoolForStaker(validatorID, ctx.Sender, forwardAmount)
	if err != nil {
		return PoolKey{}, nil, err
	}
	if key.IsSentinel() {
		return PoolKey{}, nil, fmt.Errorf("%w: validator %d has no pool that fits %d", ErrNoPoolAvailable, validatorID, forwardAmount)
	}

	pool, ok := r.pool(key.PoolAppID)
	if !ok {
		return PoolKey{}, nil, fmt.Errorf("%w: pool app %d is not registered with this registry instance", ErrInvalidConfig, key.PoolAppID)
	}

	poolCtx := ExecContext{Sender: r.Self, Now: ctx.Now, AppID: key.PoolAppID, AccountBalance: pool.Store.AccountBalance()}
	if _, err := pool.AddStake(poolCtx, forwardAmount, ctx.Sender); err != nil {
		return PoolKey{}, nil, err
	}

	insertPoolKey(set, key)
	r.Store.PutStakerPoolSet(ctx.Sender, set)

	poolState := pool.Store.State()
	idx := key.PoolID - 1
	prevStakers := v.Pools[idx].TotalStakers
	v.Pools[idx].TotalStakers = poolState.NumStakers
	v.Pools[idx].TotalAlgoStaked = poolState.Staked
	v.State.TotalStakers += poolState.NumStakers - prevStakers
	v.State.TotalAlgoStaked += forwardAmount
	r.Store.PutValidator(v)

	promTotalStaked.Add(float64(forwardAmount) / 1e6)
	promStakerCount.Set(float64(v.State.TotalStakers))

	effects := []Effect{
		{Kind: EffectPayment, From: r.Self, To: pool.Self, Amount: forwardAmount, Note: "forwarded stake"},
	}
	return key, effects, nil
}

// insertPoolKey inserts key into the first empty slot of set if key isn't
// already present (I3/I4); a no-op if it's already there.
func insertPoolKey(set *StakerPoolSet, key PoolKey) {
	emptyIdx := -1
	for i, entry := range set.Entries {
		if entry == key {
			return
		}
		if entry.IsSentinel() && emptyIdx == -1 {
			emptyIdx = i
		}
	}
	if emptyIdx != -1 {
		set.Entries[emptyIdx] = key
	}
}

// removePoolKey overwrites the slot matching key with the sentinel,
// preserving every other slot's index (I4).
func removePoolKey(set *StakerPoolSet, key PoolKey) {
	for i, entry := range set.Entries {
		if entry == key {
			set.Entries[i] = PoolKey{}
			return
		}
	}
}

// StakeUpdatedViaRewards is called by a pool after a successful epoch
// payout to report the algo and token deltas it just credited. The caller
// must authenticate as the pool identified by poolKey.
func (r *Registry) StakeUpdatedViaRewards(ctx ExecContext, poolKey PoolKey, algoAdded, tokenPaidOut, selfValidatorID, selfPoolID uint64) error {
	v, ok := r.Store.GetValidator(poolKey.ValidatorID)
	if !ok {
		return fmt.Errorf("%w: unknown validator id %d", ErrNotAuthorized, poolKey.ValidatorID)
	}
	if err := AuthenticatePoolKey(v, poolKey, ctx.Sender, selfValidatorID, selfPoolID); err != nil {
		return err
	}
	v.Pools[poolKey.PoolID-1].TotalAlgoStaked += algoAdded
	v.State.TotalAlgoStaked += algoAdded
	v.State.RewardTokenHeldBack += tokenPaidOut
	r.Store.PutValidator(v)
	promTotalStaked.Add(float64(algoAdded) / 1e6)
	return nil
}

// StakeRemoved is called by a pool on unstake or token claim. If the call
// came from a pool other than #1 and tokens were removed, this method
// routes the actual token transfer through pool #1's custody via
// payTokenReward (§4.1).
func (r *Registry) StakeRemoved(ctx ExecContext, poolKey PoolKey, staker types.Address, amountRemoved, tokenRemoved uint64, stakerRemoved bool, selfValidatorID, selfPoolID uint64) ([]Effect, error) {
	v, ok := r.Store.GetValidator(poolKey.ValidatorID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown validator id %d", ErrNotAuthorized, poolKey.ValidatorID)
	}
	if err := AuthenticatePoolKey(v, poolKey, ctx.Sender, selfValidatorID, selfPoolID); err != nil {
		return nil, err
	}

	idx := poolKey.PoolID - 1
	v.Pools[idx].TotalAlgoStaked -= amountRemoved
	v.State.TotalAlgoStaked -= amountRemoved
	v.State.RewardTokenHeldBack -= tokenRemoved

	if stakerRemoved {
		v.Pools[idx].TotalStakers--
		v.State.TotalStakers--
		if set, ok := r.Store.GetStakerPoolSet(staker); ok {
			removePoolKey(set, poolKey)
			r.Store.PutStakerPoolSet(staker, set)
		}
	}
	r.Store.PutValidator(v)
	promTotalStaked.Add(-float64(amountRemoved) / 1e6)
	promStakerCount.Set(float64(v.State.TotalStakers))

	var effects []Effect
	if poolKey.PoolID != 1 && tokenRemoved > 0 {
		pool1AppID := v.Pools[0].PoolAppID
		pool1, ok := r.pool(pool1AppID)
		if !ok {
			return nil, fmt.Errorf("%w: pool #1 (app %d) is not registered with this registry instance", ErrInvalidConfig, pool1AppID)
		}
		payCtx := ExecContext{Sender: r.Self, Now: ctx.Now, AppID: pool1AppID, AccountBalance: pool1.Store.AccountBalance()}
		payEffects, err := pool1.PayTokenReward(payCtx, staker, v.Config.RewardTokenID, tokenRemoved)
		if err != nil {
			return nil, err
		}
		effects = append(effects, payEffects...)
	}
	return effects, nil
}

// SetTokenPayoutRatio snapshots each pool's share of the validator's total
// staked algo, in parts-per-million. Pool #1 calls this directly at the
// start of its own epoch; sibling pools reach it by proxy via the primary
// pool's proxiedSetTokenPayoutRatio.
func (r *Registry) SetTokenPayoutRatio(ctx ExecContext, validatorID uint64) (PoolTokenPayoutRatio, error) {
	v, ok := r.Store.GetValidator(validatorID)
	if !ok {
		return PoolTokenPayoutRatio{}, fmt.Errorf("%w: unknown validator id %d", ErrInvalidConfig, validatorID)
	}
	var ratio PoolTokenPayoutRatio
	if v.State.TotalAlgoStaked > 0 {
		for i, p := range v.Pools {
			ratio.PoolPctOfWhole[i] = mulDivFloor([]uint64{p.TotalAlgoStaked, PoolPctDenominator}, []uint64{v.State.TotalAlgoStaked})
		}
	}
	ratio.UpdatedAt = ctx.Now
	v.TokenRatio = ratio
	r.Store.PutValidator(v)
	return ratio, nil
}

// GetValidatorConfig, GetValidatorState, GetPools, and GetOwnerAndManager are
// read-only getters mirroring §4.1's "Read-only getters" line.

func (r *Registry) GetValidatorConfig(id uint64) (ValidatorConfig, error) {
	v, ok := r.Store.GetValidator(id)
	if !ok {
		return ValidatorConfig{}, fmt.Errorf("%w: unknown validator id %d", ErrInvalidConfig, id)
	}
	return v.Config, nil
}

func (r *Registry) GetValidatorState(id uint64) (ValidatorState, error) {
	v, ok := r.Store.GetValidator(id)
	if !ok {
		return ValidatorState{}, fmt.Errorf("%w: unknown validator id %d", ErrInvalidConfig, id)
	}
	return v.State, nil
}

func (r *Registry) GetPools(id uint64) ([]PoolSummary, error) {
	v, ok := r.Store.GetValidator(id)
	if !ok {
		return nil, fmt.Errorf("%w: unknown validator id %d", ErrInvalidConfig, id)
	}
	return v.Pools, nil
}

func (r *Registry) GetOwnerAndManager(id uint64) (owner, manager types.Address, err error) {
	v, ok := r.Store.GetValidator(id)
	if !ok {
		return types.Address{}, types.Address{}, fmt.Errorf("%w: unknown validator id %d", ErrInvalidConfig, id)
	}
	return v.Owner, v.Manager, nil
}

func (r *Registry) GetStakedPoolsForAccount(staker types.Address) []PoolKey {
	set, ok := r.Store.GetStakerPoolSet(staker)
	if !ok {
		return nil
	}
	var out []PoolKey
	for _, k := range set.Entries {
		if !k.IsSentinel() {
			out = append(out, k)
		}
	}
	return out
}
