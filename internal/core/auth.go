package core

import (
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// AuthenticatePoolKey implements the four-part cross-contract authentication
// predicate of §4.3. A single check is insufficient — a malicious deployer
// could spin up a lookalike app with a matching PoolID — so all four must
// hold before a privileged inter-contract call is trusted:
//
//  1. claim.ValidatorID is known to the registry and claim.PoolID is in range.
//  2. The registry's own PoolSummary for that slot has a matching PoolAppID.
//  3. sender is the account derived from claim.PoolAppID ("the code at that
//     app is speaking", not merely someone who knows the numbers).
//  4. That pool's own self-reported ValidatorID/PoolID (its global state)
//     match the claim.
//
// Together (2)+(3)+(4) bind claim, code, and registry-approved identity.
func AuthenticatePoolKey(v *Validator, claim PoolKey, sender types.Address, selfValidatorID, selfPoolID uint64) error {
	if v == nil || v.ID != claim.ValidatorID {
		return fmt.Errorf("%w: unknown validator id %d", ErrNotAuthorized, claim.ValidatorID)
	}
	if claim.PoolID == 0 || claim.PoolID > uint64(len(v.Pools)) {
		return fmt.Errorf("%w: pool id %d out of range", ErrNotAuthorized, claim.PoolID)
	}
	summary := v.Pools[claim.PoolID-1]
	if summary.PoolAppID != claim.PoolAppID {
		return fmt.Errorf("%w: pool app id mismatch for pool %d", ErrNotAuthorized, claim.PoolID)
	}
	expectedSender := crypto.GetApplicationAddress(claim.PoolAppID)
	if sender != expectedSender {
		return fmt.Errorf("%w: sender is not the pool's application account", ErrNotAuthorized)
	}
	if selfValidatorID != claim.ValidatorID || selfPoolID != claim.PoolID {
		return fmt.Errorf("%w: pool's self-reported identity does not match its claim", ErrNotAuthorized)
	}
	return nil
}

// AuthenticateSiblingPool checks that caller is a pool of the same
// validator as self, and is not pool #1 — the precondition
// proxiedSetTokenPayoutRatio enforces on pool #1 before relaying a snapshot
// request to the registry.
func AuthenticateSiblingPool(v *Validator, self PoolKey, caller PoolKey, sender types.Address, callerSelfValidatorID, callerSelfPoolID uint64) error {
	if caller.ValidatorID != self.ValidatorID {
		return fmt.Errorf("%w: caller belongs to a different validator", ErrNotAuthorized)
	}
	if caller.PoolID == self.PoolID {
		return fmt.Errorf("%w: pool #1 cannot proxy a snapshot request to itself", ErrNotAuthorized)
	}
	return AuthenticatePoolKey(v, caller, sender, callerSelfValidatorID, callerSelfPoolID)
}
