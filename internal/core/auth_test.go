package core

import (
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/stretchr/testify/assert"
)

func testValidatorWithOnePool(poolAppID uint64) *Validator {
	return &Validator{
		ID: 1,
		Pools: []PoolSummary{
			{PoolAppID: poolAppID},
		},
	}
}

func TestAuthenticatePoolKey_AllFourChecks(t *testing.T) {
	poolAppID := uint64(5000)
	sender := crypto.GetApplicationAddress(poolAppID)
	v := testValidatorWithOnePool(poolAppID)
	claim := PoolKey{ValidatorID: 1, PoolID: 1, PoolAppID: poolAppID}

	t.Run("valid", func(t *testing.T) {
		err := AuthenticatePoolKey(v, claim, sender, 1, 1)
		assert.NoError(t, err)
	})

	t.Run("unknown validator", func(t *testing.T) {
		badClaim := claim
		badClaim.ValidatorID = 2
		err := AuthenticatePoolKey(v, badClaim, sender, 2, 1)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("pool id out of range", func(t *testing.T) {
		badClaim := claim
		badClaim.PoolID = 9
		err := AuthenticatePoolKey(v, badClaim, sender, 1, 9)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("registry's pool app id mismatch", func(t *testing.T) {
		badClaim := claim
		badClaim.PoolAppID = poolAppID + 1
		err := AuthenticatePoolKey(v, badClaim, sender, 1, 1)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("sender is not the pool's application account", func(t *testing.T) {
		err := AuthenticatePoolKey(v, claim, addrFromSeed("impostor"), 1, 1)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("self-reported identity mismatch", func(t *testing.T) {
		err := AuthenticatePoolKey(v, claim, sender, 1, 2)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}

func TestAuthenticateSiblingPool_RejectsSelfAndForeignValidator(t *testing.T) {
	v := &Validator{
		ID: 1,
		Pools: []PoolSummary{
			{PoolAppID: 5000},
			{PoolAppID: 5001},
		},
	}
	self := PoolKey{ValidatorID: 1, PoolID: 1, PoolAppID: 5000}
	sibling := PoolKey{ValidatorID: 1, PoolID: 2, PoolAppID: 5001}
	foreign := PoolKey{ValidatorID: 2, PoolID: 1, PoolAppID: 6000}

	sender := crypto.GetApplicationAddress(5001)
	assert.NoError(t, AuthenticateSiblingPool(v, self, sibling, sender, 1, 2))
	assert.ErrorIs(t, AuthenticateSiblingPool(v, self, self, crypto.GetApplicationAddress(5000), 1, 1), ErrNotAuthorized)
	assert.ErrorIs(t, AuthenticateSiblingPool(v, self, foreign, sender, 2, 1), ErrNotAuthorized)
}
