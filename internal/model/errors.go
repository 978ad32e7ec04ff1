package model

import "errors"

// Domain errors. Handlers map these to HTTP status codes and stable
// machine-readable codes via ErrorCode.
var (
	ErrInvalidAmount          = errors.New("amount must be a positive number of coins")
	ErrInsufficientFunds      = errors.New("insufficient coin balance")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateAward         = errors.New("award already credited for this reference")
	ErrConcurrencyConflict    = errors.New("balance is locked by another operation, retry")
	ErrNotFound               = errors.New("not found")
	ErrSelfReferral           = errors.New("users cannot refer themselves")
	ErrReferralExists         = errors.New("user was already referred")
)

// ErrorCode returns the stable code reported in API error bodies.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidStateTransition):
		return "invalid_state_transition"
	case errors.Is(err, ErrDuplicateAward):
		return "duplicate_award"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSelfReferral):
		return "self_referral"
	case errors.Is(err, ErrReferralExists):
		return "referral_exists"
	default:
		return "internal_error"
	}
}
