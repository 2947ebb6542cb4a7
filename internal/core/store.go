package core

import "github.com/algorand/go-algorand-sdk/v2/types"

// ExecContext replaces the ambient txn/globals the original contract
// platform exposes implicitly. Every Registry/Pool operation takes one
// explicitly, making the operation a pure function of (state, context, args)
// per §9's re-architecture guidance. Now is the only timing input the core
// ever consults — there is no wall-clock read inside core.
type ExecContext struct {
	Sender types.Address
	Now    int64 // unix seconds
	AppID  uint64

	// AccountBalance is the algo balance of the executing contract's own
	// account at the start of the call (the "B" term of the payout engine
	// for pool operations; informational for registry operations).
	AccountBalance uint64

	// FeeBudget is the fee the caller has provisioned for this call's inner
	// transactions. No core operation reads it; calls are not rejected for
	// an insufficient budget.
	FeeBudget uint64
}

// EffectKind enumerates the externally observable side effects a core
// operation can produce. These stand in for the inner transactions / opaque
// app calls the real contract would issue.
type EffectKind int

const (
	EffectPayment EffectKind = iota
	EffectAssetTransfer
	EffectAssetOptIn
	EffectKeyReg
	EffectKeyRegOffline
	EffectOpaqueAppCall
)

// Effect records one side effect of an operation: a payment, asset
// transfer/opt-in, participation key change, or opaque app call (NFD
// verification, naming-service lookups). Operations return the effects they
// would submit as inner transactions rather than performing any I/O
// themselves, keeping core fully deterministic and testable.
type Effect struct {
	Kind    EffectKind
	From    types.Address
	To      types.Address
	Amount  uint64
	AssetID uint64
	// AppID is the target application for EffectOpaqueAppCall.
	AppID uint64
	Note  string
}

// RegistryStore is the explicit state-store interface backing
// ValidatorRegistry. It replaces the platform's implicit global-state/box
// handles with ordinary keyed lookups; an implementation may back this with
// memory (see MemRegistryStore), a database, or durable file storage.
type RegistryStore interface {
	NumValidators() uint64
	SetNumValidators(n uint64)

	PoolTemplateAppID() uint64
	SetPoolTemplateAppID(id uint64)

	GetValidator(id uint64) (*Validator, bool)
	PutValidator(v *Validator)

	GetStakerPoolSet(staker types.Address) (*StakerPoolSet, bool)
	PutStakerPoolSet(staker types.Address, set *StakerPoolSet)
}

// PoolStore is the explicit state-store interface backing one StakingPool
// instance: its globals, its staker ledger box, and (for pool #1 only) its
// reward-token asset holding.
type PoolStore interface {
	State() PoolState
	SetState(s PoolState)

	// Ledger returns the fixed-capacity staker ledger. Implementations must
	// return a slice of exactly MaxStakersPerPool entries (empty slots carry
	// a zero Account), mirroring the platform's fixed-size box.
	Ledger() []StakedInfo
	SetLedger(l []StakedInfo)

	AssetBalance(assetID uint64) uint64
	SetAssetBalance(assetID uint64, balance uint64)

	// AccountBalance is the pool app account's current algo balance.
	AccountBalance() uint64
	// AddAccountBalance credits (positive) or debits (negative) the pool
	// app account's algo balance, e.g. for incoming stake or outgoing
	// commission/payouts.
	AddAccountBalance(delta int64)
}
