package core

import (
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// GatingType discriminates the (deliberately opaque) entry-gating variants a
// validator may configure. The gating logic itself lives outside this core
// package; only the configuration shape is modeled here.
type GatingType int

const (
	GatingNone GatingType = iota
	GatingNfdCreator
	GatingNfdAppID
	GatingAssetRequired
	GatingAddressAllowList
)

// GatingConfig is the discriminated union referenced by §9's design notes.
type GatingConfig struct {
	Type GatingType

	// Populated for GatingAssetRequired.
	AssetIDs  []uint64
	MinBalance uint64

	// Populated for GatingNfdAppID.
	NFDAppID uint64

	// Populated for GatingAddressAllowList.
	Addresses []types.Address
}

// ValidatorConfig is immutable after creation except for the fields the
// registry explicitly allows the owner to edit post-hoc (none of the bound
// fields are editable; see Validator.Manager/Owner for the mutable
// identity fields).
type ValidatorConfig struct {
	PayoutEveryXMins           uint16
	PctToValidator             uint32
	ValidatorCommissionAddress types.Address
	MinEntryStake              uint64
	MaxAlgoPerPool             uint64
	PoolsPerNode               int
	MaxNodes                   int

	// RewardTokenID == 0 means no secondary reward token is configured.
	RewardTokenID   uint64
	RewardPerPayout uint64

	EntryGating GatingConfig
}

// ValidatorState is the mutable aggregate state of a validator, updated only
// via the transitions defined on Registry.
type ValidatorState struct {
	NumPools            uint64
	TotalStakers        uint64
	TotalAlgoStaked     uint64
	RewardTokenHeldBack uint64
}

// PoolSummary is the registry's cached view of one pool's aggregate counters.
// It is kept in sync with the pool's own state by addStake/stakeUpdatedViaRewards/
// stakeRemoved; see invariants I1/I2/I5.
type PoolSummary struct {
	NodeID          uint64
	PoolAppID       uint64
	TotalStakers    uint64
	TotalAlgoStaked uint64
}

// NodePoolAssignment tracks which pool app ids have been placed on a given
// node slot, capped at cfg.PoolsPerNode entries.
type NodePoolAssignment struct {
	PoolAppIDs []uint64
}

// Validator is the root-of-trust record the registry keeps, one per
// registered validator. Pools are appended, never removed.
type Validator struct {
	ID       uint64
	Owner    types.Address
	Manager  types.Address
	NFDAppID uint64
	Config   ValidatorConfig
	State    ValidatorState
	Nodes    [MaxNodes]NodePoolAssignment
	Pools    []PoolSummary // len <= MaxPools; Pools[i] is poolId i+1

	// TokenRatio caches the most recent setTokenPayoutRatio snapshot.
	TokenRatio PoolTokenPayoutRatio
}

// PoolKey is the composite cross-contract identity described in §4.3: every
// privileged call between registry and pool carries one, and the receiver
// authenticates all three components plus the caller's self-reported state.
type PoolKey struct {
	ValidatorID uint64
	PoolID      uint64 // 0 is the "no pool" sentinel
	PoolAppID   uint64
}

// IsSentinel reports whether this key represents "no pool available" (PoolID
// 0): the result findPoolForStaker returns when no pool fits, and the value
// of an empty StakerPoolSet slot.
func (k PoolKey) IsSentinel() bool {
	return k.PoolID == 0
}

// StakerPoolSet is the fixed-capacity (4) list of pools a staker participates
// in, indexed by validator. Empty slots carry the zero PoolKey.
type StakerPoolSet struct {
	Entries [4]PoolKey
}

// StakedInfo is one row of a pool's staker ledger. Empty slots have a zero
// Account.
type StakedInfo struct {
	Account            types.Address
	Balance            uint64
	TotalRewarded      uint64
	RewardTokenBalance uint64
	// EntryTime is the Unix timestamp (seconds) at which the stake becomes
	// visible for reward purposes, i.e. currentTimestamp plus the platform's
	// stake-visibility delay, computed at the moment the stake was added.
	EntryTime int64
}

func (s StakedInfo) isEmpty() bool {
	return s.Account.IsZero()
}

// PoolState is a pool instance's persistent global state.
type PoolState struct {
	CreatorApp    uint64
	ValidatorID   uint64
	PoolID        uint64
	NumStakers    uint64
	Staked        uint64
	MinEntryStake uint64
	MaxStake      uint64
	// MinBalance is the account's MBR floor as of initStorage: the base
	// account minimum plus the ledger box's byte cost (plus the asset
	// holding fee, for pool #1 with a reward token). epochBalanceUpdate
	// treats anything above this floor, net of staked algo, as reward.
	MinBalance uint64
	// LastPayout is set to the initStorage time and advanced to the call
	// time by each successful epochBalanceUpdate.
	LastPayout int64
	AlgodVer   string
}

// PoolTokenPayoutRatio is the snapshot described in §4.1's
// setTokenPayoutRatio: each pool's share (parts-per-million) of the
// validator's total staked algo, as of the snapshot time.
type PoolTokenPayoutRatio struct {
	PoolPctOfWhole [MaxPools]uint64
	// UpdatedAt records when the snapshot was taken. SetTokenPayoutRatio
	// recomputes the snapshot on every call and does not consult it.
	UpdatedAt int64
}

// ProtocolConstraints exposes the numeric bounds of §6/§8 to external
// callers so they don't have to hardcode them.
type ProtocolConstraints struct {
	MinPayoutMins           uint16
	MaxPayoutMins           uint16
	MinPctToValidator       uint32
	MaxPctToValidator       uint32
	MaxNodes                int
	MaxPoolsPerNode         int
	MaxStakersPerPool       int
	MinEntryStake           uint64
	MaxAlgoPerPool          uint64
	MaxValidatorPctOfOnline uint64
}

// MbrAmounts are the exact accompanying-payment amounts the registry/pool
// require for the operations that allocate new durable storage.
type MbrAmounts struct {
	AddValidatorMbr uint64
	AddPoolMbr      uint64
	PoolInitMbr     uint64
	AddStakerMbr    uint64
}
