package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAddStake_PoolFillRejection covers scenario 3: a pool filled to
// maxAlgoPerPool-1 rejects a stake that would overflow it, with no state
// change to either the registry or the pool.
func TestAddStake_PoolFillRejection(t *testing.T) {
	owner := addrFromSeed("owner")
	cfg := defaultConfig(owner)
	// One unit of headroom above exactly one staker's minimum entry stake,
	// so the pool ends up filled to maxAlgoPerPool-1 after the first stake.
	cfg.MaxAlgoPerPool = cfg.MinEntryStake + 1

	reg, vid, pools := setup(cfg, 1, 0)
	pool := pools[0]

	deposit := GetMbrAmounts(false).AddStakerMbr
	first := addrFromSeed("first-staker")
	stake(reg, vid, first, cfg.MinEntryStake+deposit, 0)

	v, _ := reg.Store.GetValidator(vid)
	require.Equal(t, cfg.MaxAlgoPerPool-1, v.State.TotalAlgoStaked)
	stakedBefore := v.State.TotalAlgoStaked
	poolBalanceBefore := pool.Store.AccountBalance()

	// first already has a StakerPoolSet entry for this validator, so the
	// follow-on stake walks the existing-membership path (pure capacity
	// check, no minEntryStake re-assertion) and still finds no room.
	_, _, err := reg.AddStake(ExecContext{Sender: first, Now: 0}, 2, vid)
	assert.ErrorIs(t, err, ErrNoPoolAvailable)

	v, _ = reg.Store.GetValidator(vid)
	assert.Equal(t, stakedBefore, v.State.TotalAlgoStaked)
	assert.Equal(t, poolBalanceBefore, pool.Store.AccountBalance())
}

// TestAddStake_CrossValidatorFallsThroughToNewPool covers a staker who
// already holds a StakerPoolSet entry under validator A placing their first
// stake with validator B: FindPoolForStaker must not stop at "no existing
// entry under B" and return the sentinel, it must fall through to the same
// first-pool-with-room scan a brand-new staker gets.
func TestAddStake_CrossValidatorFallsThroughToNewPool(t *testing.T) {
	reg, _ := newHarness()

	ownerA := addrFromSeed("owner-a")
	cfgA := defaultConfig(ownerA)
	vidA, err := reg.AddValidator(ExecContext{Sender: ownerA}, ownerA, ownerA, 0, cfgA)
	require.NoError(t, err)
	mbrA := reg.GetMbrAmounts(vidA).AddPoolMbr
	keyA, _, err := reg.AddPool(ExecContext{Sender: ownerA}, mbrA, vidA, 2000)
	require.NoError(t, err)
	poolA := mustAddPool(reg, vidA, 2000)
	require.NoError(t, poolA.CreateApplication(reg.AppID, vidA, keyA.PoolID, cfgA.MinEntryStake, cfgA.MaxAlgoPerPool))
	_, err = poolA.InitStorage(ExecContext{}, GetMbrAmounts(false).PoolInitMbr, cfgA.RewardTokenID, false)
	require.NoError(t, err)

	ownerB := addrFromSeed("owner-b")
	cfgB := defaultConfig(ownerB)
	vidB, err := reg.AddValidator(ExecContext{Sender: ownerB}, ownerB, ownerB, 0, cfgB)
	require.NoError(t, err)
	mbrB := reg.GetMbrAmounts(vidB).AddPoolMbr
	keyB, _, err := reg.AddPool(ExecContext{Sender: ownerB}, mbrB, vidB, 3000)
	require.NoError(t, err)
	poolB := mustAddPool(reg, vidB, 3000)
	require.NoError(t, poolB.CreateApplication(reg.AppID, vidB, keyB.PoolID, cfgB.MinEntryStake, cfgB.MaxAlgoPerPool))
	_, err = poolB.InitStorage(ExecContext{}, GetMbrAmounts(false).PoolInitMbr, cfgB.RewardTokenID, false)
	require.NoError(t, err)

	staker := addrFromSeed("multi-validator-staker")
	deposit := GetMbrAmounts(false).AddStakerMbr

	stake(reg, vidA, staker, cfgA.MinEntryStake+deposit, 0)

	// staker already has a StakerPoolSet entry (from the vidA stake above),
	// so this second stake owes no further first-stake deposit.
	key, _, err := reg.AddStake(ExecContext{Sender: staker}, cfgB.MinEntryStake, vidB)
	require.NoError(t, err)
	assert.Equal(t, vidB, key.ValidatorID)
	assert.False(t, key.IsSentinel())

	vB, _ := reg.Store.GetValidator(vidB)
	assert.Equal(t, uint64(1), vB.State.TotalStakers)
	assert.Equal(t, cfgB.MinEntryStake, vB.State.TotalAlgoStaked)
}

// TestAddStake_RoundTrip covers P8: stake then fully unstake restores totals
// and clears the staker's pool-membership set.
func TestAddStake_RoundTrip(t *testing.T) {
	owner := addrFromSeed("owner")
	cfg := defaultConfig(owner)
	reg, vid, pools := setup(cfg, 1, 0)
	pool := pools[0]

	staker := addrFromSeed("alice")
	amount := cfg.MinEntryStake + GetMbrAmounts(false).AddStakerMbr

	stake(reg, vid, staker, amount, 0)

	v, _ := reg.Store.GetValidator(vid)
	require.Equal(t, uint64(1), v.State.TotalStakers)

	_, _, err := pool.RemoveStake(ExecContext{Sender: staker, Now: 0}, 0)
	require.NoError(t, err)

	v, _ = reg.Store.GetValidator(vid)
	assert.Equal(t, uint64(0), v.State.TotalStakers)
	assert.Equal(t, uint64(0), v.State.TotalAlgoStaked)
	assert.Equal(t, uint64(0), v.Pools[0].TotalAlgoStaked)

	set, ok := reg.Store.GetStakerPoolSet(staker)
	require.True(t, ok)
	for _, entry := range set.Entries {
		assert.True(t, entry.IsSentinel())
	}
}

// TestAddValidator_RejectsOutOfBoundsConfig exercises the ConfigurationError
// gate.
func TestAddValidator_RejectsOutOfBoundsConfig(t *testing.T) {
	owner := addrFromSeed("owner")
	reg, _ := newHarness()

	cfg := defaultConfig(owner)
	cfg.PctToValidator = MaxPctToValidator + 1
	_, err := reg.AddValidator(ExecContext{Sender: owner, Now: 0}, owner, owner, 0, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestAddPool_RequiresOwnerOrManager exercises the AuthorizationError gate.
func TestAddPool_RequiresOwnerOrManager(t *testing.T) {
	owner := addrFromSeed("owner")
	cfg := defaultConfig(owner)
	reg, _ := newHarness()
	vid, err := reg.AddValidator(ExecContext{Sender: owner, Now: 0}, owner, owner, 0, cfg)
	require.NoError(t, err)

	stranger := addrFromSeed("stranger")
	mbr := reg.GetMbrAmounts(vid).AddPoolMbr
	_, _, err = reg.AddPool(ExecContext{Sender: stranger, Now: 0}, mbr, vid, 2000)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
