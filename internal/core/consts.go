package core

// Protocol-wide numeric constants. Values and names mirror the "Numeric
// constants (bit-exact)" table of the registry/pool specification.
const (
	// StakeVisibilityDelayBlocks is the number of blocks a stake change must
	// wait before it is visible to consensus (and thus eligible for reward
	// weighting).
	StakeVisibilityDelayBlocks = 320
	// AvgBlockTimeTenths is the assumed average block time, in tenths of a
	// second (28 == 2.8s).
	AvgBlockTimeTenths = 28

	MaxNodes        = 12
	MaxPoolsPerNode = 4
	MaxPools        = MaxNodes * MaxPoolsPerNode

	MaxStakersPerPool = 80

	// MinPayoutMins / MaxPayoutMins bound cfg.PayoutEveryXMins. The spec
	// leaves the exact bounds open; we pick a floor of one hour (frequent
	// enough to matter, infrequent enough that gas/resource overhead per
	// payout stays reasonable) and a ceiling of one week.
	MinPayoutMins = 60
	MaxPayoutMins = 7 * 24 * 60

	MinPctToValidator = 10_000
	MaxPctToValidator = 1_000_000

	// CommissionDenominator and TimePercentDenominator are the fixed-point
	// denominators used throughout the payout engine.
	CommissionDenominator  = 1_000_000
	TimePercentDenominator = 1_000
	// PoolPctDenominator is the denominator used for the token payout ratio
	// snapshot (floor(pool stake * 1_000_000 / total stake)).
	PoolPctDenominator = 1_000_000

	// DefaultMaxValidatorPctOfOnline is the protocol-wide cap, expressed in
	// tenths of a percent (100 == 10%), on the fraction of total online
	// stake a single validator may represent before its rewards are
	// redirected to the fee sink.
	DefaultMaxValidatorPctOfOnline = 100

	// ProtocolMinEntryStake / ProtocolMaxAlgoPerPool bound validator config
	// at the protocol level; a validator's own cfg.MinEntryStake/MaxAlgoPerPool
	// must stay within these.
	ProtocolMinEntryStake  = 1_000_000      // 1 whole unit
	ProtocolMaxAlgoPerPool = 70_000_000_000 // 70,000 whole units, in line with typical online-stake incentive caps

	// AlgorandAccountMinBalance is the platform's base minimum balance for
	// any funded account (registry, pool, or app account).
	AlgorandAccountMinBalance = 100_000

	// Box storage pricing: BoxBaseCost per box plus BoxByteCost per byte of
	// (key + value), matching the platform's box MBR formula.
	BoxBaseCost = 2_500
	BoxByteCost = 400

	// AssetHoldingFee is the MBR cost of a single asset opt-in.
	AssetHoldingFee = 100_000

	// OneWholeUnit is the smallest "real" reward unit a pure-algo payout must
	// clear when no token reward is available (§4.4, RewardTooSmall).
	OneWholeUnit = 1_000_000
)
