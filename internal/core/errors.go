package core

import "errors"

// Error taxonomy for the registry/pool core. Every externally triggered
// operation either returns nil or one of these (possibly wrapped with
// fmt.Errorf's %w for detail); callers can classify failures with errors.Is
// without parsing strings. All of them abort the enclosing operation with no
// partial effect, matching the all-or-nothing transaction semantics of §5.
var (
	// ConfigurationError: bounds violation on addValidator.
	ErrInvalidConfig = errors.New("invalid validator configuration")

	// AuthorizationError: sender is not owner/manager/registry/expected-pool.
	ErrNotAuthorized = errors.New("caller is not authorized for this operation")

	// CapacityError family.
	ErrPoolFull          = errors.New("staking pool has no empty ledger slot")
	ErrPoolCapExceeded   = errors.New("validator has reached its maximum pool count")
	ErrNoPoolAvailable   = errors.New("no pool can accept this stake amount")
	ErrStakerPoolSetFull = errors.New("staker's pool membership set is full")

	// StakeError family.
	ErrInsufficientBalance = errors.New("insufficient staked balance")
	ErrBelowMinimum        = errors.New("amount is below the validator's minimum entry stake")
	ErrExceedsMaxPerPool   = errors.New("amount would exceed the pool's maximum allowed stake")
	ErrAccountNotFound     = errors.New("staker has no ledger entry in this pool")

	// PaymentError family.
	ErrPaymentMissing = errors.New("required accompanying payment is missing")
	ErrWrongSender    = errors.New("payment sender does not match expected account")
	ErrWrongReceiver  = errors.New("payment receiver does not match expected account")
	ErrWrongAmount    = errors.New("payment amount does not match the required amount")

	// TimingError family.
	ErrEpochTooEarly  = errors.New("epoch payout interval has not yet elapsed")
	ErrRewardTooSmall = errors.New("no token reward available and algo reward is at or below one whole unit")

	// InvariantViolation: a computed state update would break one of I1-I8.
	ErrInvariantViolation = errors.New("operation would violate a core state invariant")
)
