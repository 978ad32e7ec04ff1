package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedemptionTransitions(t *testing.T) {
	tests := []struct {
		from    RedemptionStatus
		to      RedemptionStatus
		allowed bool
	}{
		{RedemptionStatusPending, RedemptionStatusProcessing, true},
		{RedemptionStatusPending, RedemptionStatusCancelled, true},
		{RedemptionStatusPending, RedemptionStatusFailed, true},
		{RedemptionStatusPending, RedemptionStatusCompleted, false},
		{RedemptionStatusProcessing, RedemptionStatusCompleted, true},
		{RedemptionStatusProcessing, RedemptionStatusFailed, true},
		{RedemptionStatusProcessing, RedemptionStatusCancelled, false},
		{RedemptionStatusCompleted, RedemptionStatusFailed, false},
		{RedemptionStatusCompleted, RedemptionStatusPending, false},
		{RedemptionStatusCancelled, RedemptionStatusProcessing, false},
		{RedemptionStatusFailed, RedemptionStatusPending, false},
	}

	for _, ts := range tests {
		require.Equal(t, ts.allowed, ts.from.CanTransition(ts.to), "%s -> %s", ts.from, ts.to)
	}
}

func TestRedemptionTerminalStates(t *testing.T) {
	require.False(t, RedemptionStatusPending.Terminal())
	require.False(t, RedemptionStatusProcessing.Terminal())
	require.True(t, RedemptionStatusCompleted.Terminal())
	require.True(t, RedemptionStatusCancelled.Terminal())
	require.True(t, RedemptionStatusFailed.Terminal())
}

func TestRedemptionRefundingStates(t *testing.T) {
	require.True(t, RedemptionStatusCancelled.Refunds())
	require.True(t, RedemptionStatusFailed.Refunds())
	require.False(t, RedemptionStatusCompleted.Refunds())
	require.False(t, RedemptionStatusProcessing.Refunds())
}

func TestCommissionTransitions(t *testing.T) {
	tests := []struct {
		from    CommissionStatus
		to      CommissionStatus
		allowed bool
	}{
		{CommissionStatusPending, CommissionStatusProcessing, true},
		{CommissionStatusPending, CommissionStatusFailed, true},
		{CommissionStatusPending, CommissionStatusPaid, false},
		{CommissionStatusProcessing, CommissionStatusPaid, true},
		{CommissionStatusProcessing, CommissionStatusFailed, true},
		{CommissionStatusPaid, CommissionStatusFailed, false},
		{CommissionStatusFailed, CommissionStatusProcessing, false},
	}

	for _, ts := range tests {
		require.Equal(t, ts.allowed, ts.from.CanTransition(ts.to), "%s -> %s", ts.from, ts.to)
	}
}

func TestEntryKindDebit(t *testing.T) {
	require.True(t, EntryKindSpend.Debit())
	require.True(t, EntryKindRedeem.Debit())
	require.False(t, EntryKindEarn.Debit())
	require.False(t, EntryKindAdjust.Debit())
}

func TestErrorCodes(t *testing.T) {
	require.Equal(t, "insufficient_funds", ErrorCode(ErrInsufficientFunds))
	require.Equal(t, "invalid_amount", ErrorCode(ErrInvalidAmount))
	require.Equal(t, "invalid_state_transition", ErrorCode(ErrInvalidStateTransition))
	require.Equal(t, "duplicate_award", ErrorCode(ErrDuplicateAward))
	require.Equal(t, "concurrency_conflict", ErrorCode(ErrConcurrencyConflict))
	require.Equal(t, "internal_error", ErrorCode(errors.New("boom")))
}
