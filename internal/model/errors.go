package model

import "errors"

// Precondition violations. Nothing is mutated when one of these is returned.
var (
	ErrUnauthorized            = errors.New("unauthorized access")
	ErrAlreadyInitialized      = errors.New("user funds already initialized")
	ErrNotInitialized          = errors.New("user funds not initialized")
	ErrReallocationTooFrequent = errors.New("reallocation too frequent, try again later")
	ErrReentrancyDetected      = errors.New("reentrancy attempt detected")
	ErrUnsupportedProtocol     = errors.New("unsupported protocol")
	ErrSameProtocol            = errors.New("current and new protocol are the same")
	ErrProtocolMismatch        = errors.New("current protocol does not match ledger")
	ErrInvalidFeeRate          = errors.New("fee rate exceeds 10000 basis points")
	ErrInsufficientFunds       = errors.New("insufficient funds in the user account")
	ErrTooManyAssets           = errors.New("asset capacity exceeded")
	ErrGovernanceMissing       = errors.New("governance record not initialized")
)

// ErrLowerYieldRate is a decision, not a fault: the candidate protocol does not
// pay more than the current one.
var ErrLowerYieldRate = errors.New("yield rate is lower in the new protocol")

// Collaborator failures.
var (
	ErrRateUnavailable  = errors.New("yield rate unavailable")
	ErrWithdrawalFailed = errors.New("failed to withdraw from the current protocol")
	ErrDepositFailed    = errors.New("failed to deposit to the new protocol")
)

// ErrFeeOverflow means the fee arithmetic was asked to produce a fee larger
// than the gross amount. It is a broken invariant and must not be retried.
var ErrFeeOverflow = errors.New("fee computation overflow")

// ErrGuardReleaseFailed means an attempt ended but its guard could not be
// cleared. The owner stays locked out until an operator resets the guard.
var ErrGuardReleaseFailed = errors.New("reentrancy guard release failed")

func IsPrecondition(err error) bool {
	for _, target := range []error{
		ErrUnauthorized, ErrAlreadyInitialized, ErrNotInitialized,
		ErrReallocationTooFrequent, ErrReentrancyDetected, ErrUnsupportedProtocol,
		ErrSameProtocol, ErrProtocolMismatch, ErrInvalidFeeRate,
		ErrInsufficientFunds, ErrTooManyAssets,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsBusinessOutcome reports a clean "nothing to do" decision. A lower yield
// joined with a guard release failure is not clean.
func IsBusinessOutcome(err error) bool {
	return errors.Is(err, ErrLowerYieldRate) && !errors.Is(err, ErrGuardReleaseFailed)
}

// IsAdapterFailure reports a failure raised while moving funds between venues.
func IsAdapterFailure(err error) bool {
	return errors.Is(err, ErrWithdrawalFailed) || errors.Is(err, ErrDepositFailed)
}

// IsFatal reports invariant violations that operators must look at.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFeeOverflow) || errors.Is(err, ErrGuardReleaseFailed)
}
