package core

import (
	"crypto/sha256"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// addrFromSeed derives a deterministic, distinct test address from seed so
// test cases don't need to fabricate real key material.
func addrFromSeed(seed string) types.Address {
	h := sha256.Sum256([]byte(seed))
	var a types.Address
	copy(a[:], h[:])
	return a
}

// newHarness wires an empty Registry, backed by an in-memory store and ready
// for addValidator/addPool; it creates no validator and no pool.
func newHarness() (*Registry, types.Address) {
	store := NewMemRegistryStore()
	reg := NewRegistry(store, 1000, addrFromSeed("feesink"))
	return reg, addrFromSeed("feesink")
}

func mustAddPool(reg *Registry, validatorID, poolAppID uint64) *Pool {
	pool := NewPool(NewMemPoolStore(), poolAppID, reg)
	reg.RegisterPool(pool)
	return pool
}

func defaultConfig(owner types.Address) ValidatorConfig {
	return ValidatorConfig{
		PayoutEveryXMins:           60,
		PctToValidator:             50_000, // 5%
		ValidatorCommissionAddress: owner,
		MinEntryStake:              ProtocolMinEntryStake,
		MaxAlgoPerPool:             ProtocolMaxAlgoPerPool,
		PoolsPerNode:               4,
		MaxNodes:                  12,
	}
}

// setup builds a registry with one validator and numPools freshly
// initialized pools (no stakers yet), returning the registry, validator id,
// and the live Pool handles in pool-id order (index 0 == pool #1).
func setup(cfg ValidatorConfig, numPools int, now int64) (*Registry, uint64, []*Pool) {
	reg, _ := newHarness()
	owner := cfg.ValidatorCommissionAddress
	vid, err := reg.AddValidator(ExecContext{Sender: owner, Now: now}, owner, owner, 0, cfg)
	if err != nil {
		panic(err)
	}

	var pools []*Pool
	for i := 0; i < numPools; i++ {
		poolAppID := uint64(2000 + i)
		mbr := reg.GetMbrAmounts(vid).AddPoolMbr
		key, _, err := reg.AddPool(ExecContext{Sender: owner, Now: now}, mbr, vid, poolAppID)
		if err != nil {
			panic(err)
		}
		pool := mustAddPool(reg, vid, poolAppID)
		if err := pool.CreateApplication(reg.AppID, vid, key.PoolID, cfg.MinEntryStake, cfg.MaxAlgoPerPool); err != nil {
			panic(err)
		}
		needsOptIn := key.PoolID == 1 && cfg.RewardTokenID != 0
		initMbr := GetMbrAmounts(needsOptIn).PoolInitMbr
		if _, err := pool.InitStorage(ExecContext{Now: now}, initMbr, cfg.RewardTokenID, false); err != nil {
			panic(err)
		}
		pools = append(pools, pool)
	}
	return reg, vid, pools
}

// stake places amount into validator vid on behalf of staker via the
// registry, funding the pool's own account balance to match (as the real
// contract's inner payment would).
func stake(reg *Registry, vid uint64, staker types.Address, amount uint64, now int64) PoolKey {
	key, _, err := reg.AddStake(ExecContext{Sender: staker, Now: now}, amount, vid)
	if err != nil {
		panic(err)
	}
	return key
}

// seedRegistryTotals mirrors a single-pool validator's registry-side
// aggregates (v.Pools[0].TotalAlgoStaked, v.State.TotalAlgoStaked) to match
// stake placed directly via placeStaker, restoring I1 for tests that bypass
// the registry's own bookkeeping.
func seedRegistryTotals(reg *Registry, vid uint64, poolOneStaked uint64) {
	v, ok := reg.Store.GetValidator(vid)
	if !ok {
		panic("unknown validator")
	}
	v.Pools[0].TotalAlgoStaked = poolOneStaked
	v.State.TotalAlgoStaked = poolOneStaked
	reg.Store.PutValidator(v)
}

// placeStaker writes a staker directly into pool's ledger at a given
// entryTime, bypassing the visibility-delay offset AddStake applies, so
// payout-engine tests can exercise exact round numbers and epoch timing.
func placeStaker(pool *Pool, account types.Address, balance uint64, entryTime int64) {
	ledger := pool.Store.Ledger()
	for i, s := range ledger {
		if s.isEmpty() {
			ledger[i] = StakedInfo{Account: account, Balance: balance, EntryTime: entryTime}
			state := pool.Store.State()
			state.Staked += balance
			state.NumStakers++
			pool.Store.SetState(state)
			pool.Store.SetLedger(ledger)
			pool.Store.AddAccountBalance(int64(balance))
			return
		}
	}
	panic("pool ledger full")
}
