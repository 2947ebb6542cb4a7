package daemon

import (
	"context"
	"crypto/sha256"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algostake/stakepool/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func addr(seed string) types.Address {
	h := sha256.Sum256([]byte(seed))
	var a types.Address
	copy(a[:], h[:])
	return a
}

func newTestPool(t *testing.T) (*core.Registry, *core.Pool) {
	t.Helper()
	owner := addr("owner")
	store := core.NewMemRegistryStore()
	reg := core.NewRegistry(store, 1000, addr("feesink"))

	cfg := core.ValidatorConfig{
		PayoutEveryXMins:           60,
		PctToValidator:             50_000,
		ValidatorCommissionAddress: owner,
		MinEntryStake:              core.ProtocolMinEntryStake,
		MaxAlgoPerPool:             core.ProtocolMaxAlgoPerPool,
		PoolsPerNode:               4,
		MaxNodes:                   12,
	}
	vid, err := reg.AddValidator(core.ExecContext{Sender: owner, Now: 0}, owner, owner, 0, cfg)
	require.NoError(t, err)

	mbr := reg.GetMbrAmounts(vid).AddPoolMbr
	key, _, err := reg.AddPool(core.ExecContext{Sender: owner, Now: 0}, mbr, vid, 2000)
	require.NoError(t, err)

	pool := core.NewPool(core.NewMemPoolStore(), 2000, reg)
	reg.RegisterPool(pool)
	require.NoError(t, pool.CreateApplication(reg.AppID, vid, key.PoolID, cfg.MinEntryStake, cfg.MaxAlgoPerPool))

	initMbr := core.GetMbrAmounts(false).PoolInitMbr
	_, err = pool.InitStorage(core.ExecContext{Now: 0}, initMbr, 0, false)
	require.NoError(t, err)

	return reg, pool
}

// TestSweepOnce_SwallowsEpochTooEarly covers the daemon's expected-condition
// handling: a pool whose epoch hasn't elapsed yet must not surface an error
// from a sweep tick.
func TestSweepOnce_SwallowsEpochTooEarly(t *testing.T) {
	_, pool := newTestPool(t)
	st := pool.Store.State()
	st.LastPayout = time.Now().Unix() // the sweep below runs inside the same epoch
	pool.Store.SetState(st)
	d := New(nil, nil, func() uint64 { return 0 }, time.Minute)
	d.logger = discardLogger()
	d.SetManagedPools([]ManagedPool{{NodeID: 1, Pool: pool}})

	d.sweepOnce(context.Background())
}

// TestSweepOnce_PaysOutWhenDue exercises the payout a sweep tick triggers: a
// pool with reward income and an elapsed epoch completes EpochBalanceUpdate
// without error. The call is made on the pool directly with a fixed Now,
// since sweepOnce reads the wall clock and reports no error to its caller.
func TestSweepOnce_PaysOutWhenDue(t *testing.T) {
	reg, pool := newTestPool(t)
	_ = reg

	staker := addr("alice")
	amount := core.ProtocolMinEntryStake + core.GetMbrAmounts(false).AddStakerMbr
	_, _, err := reg.AddStake(core.ExecContext{Sender: staker, Now: 0}, amount, pool.Store.State().ValidatorID)
	require.NoError(t, err)

	pool.Store.AddAccountBalance(100 * core.OneWholeUnit)

	d := New(discardLogger(), reg, func() uint64 { return 0 }, time.Minute)
	d.SetManagedPools([]ManagedPool{{NodeID: 1, Pool: pool}})

	epochSecs := int64(60 * 60)
	now := epochSecs
	_, err = pool.EpochBalanceUpdate(core.ExecContext{Now: now, AccountBalance: pool.Store.AccountBalance()}, 0)
	assert.NoError(t, err)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	_, pool := newTestPool(t)
	d := New(discardLogger(), nil, func() uint64 { return 0 }, time.Millisecond)
	d.SetManagedPools([]ManagedPool{{NodeID: 1, Pool: pool}})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	d.Start(ctx, &wg)
	cancel()
	wg.Wait()
}
