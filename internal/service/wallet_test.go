package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sarvcast/coinsvc/internal/model"
)

func TestSpendExactBalance(t *testing.T) {
	store := newFakeStore()
	store.seedUser(1, 100)
	svc := NewWalletService(store, nil, zap.NewNop())

	entry, err := svc.Spend(context.Background(), 1, 100, "story:42")
	require.NoError(t, err)
	require.Equal(t, int64(-100), entry.Amount)
	require.Equal(t, int64(0), entry.BalanceAfter)
	require.Equal(t, int64(0), store.balance(1))
}

func TestSpendInsufficientFunds(t *testing.T) {
	store := newFakeStore()
	store.seedUser(1, 100)
	svc := NewWalletService(store, nil, zap.NewNop())

	_, err := svc.Spend(context.Background(), 1, 101, "story:42")
	require.ErrorIs(t, err, model.ErrInsufficientFunds)
	require.Equal(t, int64(100), store.balance(1))
}

func TestSpendInvalidAmount(t *testing.T) {
	store := newFakeStore()
	store.seedUser(1, 100)
	svc := NewWalletService(store, nil, zap.NewNop())

	for _, amount := range []int64{0, -5} {
		_, err := svc.Spend(context.Background(), 1, amount, "story:42")
		require.ErrorIs(t, err, model.ErrInvalidAmount, "amount=%d", amount)
	}
}

func TestSpendRetriesOnceOnConflict(t *testing.T) {
	store := newFakeStore()
	store.seedUser(1, 100)
	store.conflicts = 1
	svc := NewWalletService(store, nil, zap.NewNop())

	entry, err := svc.Spend(context.Background(), 1, 50, "story:42")
	require.NoError(t, err)
	require.Equal(t, int64(50), entry.BalanceAfter)
}

func TestSpendSurfacesRepeatedConflict(t *testing.T) {
	store := newFakeStore()
	store.seedUser(1, 100)
	store.conflicts = 2
	svc := NewWalletService(store, nil, zap.NewNop())

	_, err := svc.Spend(context.Background(), 1, 50, "story:42")
	require.ErrorIs(t, err, model.ErrConcurrencyConflict)
}

func TestGetBalanceProvisionsUnknownUser(t *testing.T) {
	store := newFakeStore()
	svc := NewWalletService(store, nil, zap.NewNop())

	balance, err := svc.GetBalance(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}

func TestGetTransactionsClampsLimit(t *testing.T) {
	store := newFakeStore()
	store.seedUser(1, 1000)
	svc := NewWalletService(store, nil, zap.NewNop())

	for i := 0; i < 30; i++ {
		_, err := svc.Spend(context.Background(), 1, 1, "item")
		require.NoError(t, err)
	}

	entries, err := svc.GetTransactions(context.Background(), 1, model.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 20) // default page size

	entries, err = svc.GetTransactions(context.Background(), 1, model.EntryFilter{Kind: model.EntryKindSpend, Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 10)
	for _, e := range entries {
		require.Equal(t, model.EntryKindSpend, e.Kind)
	}
}

func TestAdjustCannotGoNegative(t *testing.T) {
	store := newFakeStore()
	store.seedUser(1, 30)
	svc := NewWalletService(store, nil, zap.NewNop())

	_, err := svc.Adjust(context.Background(), 1, -50, "correction")
	require.ErrorIs(t, err, model.ErrInsufficientFunds)

	entry, err := svc.Adjust(context.Background(), 1, -30, "correction")
	require.NoError(t, err)
	require.Equal(t, int64(0), entry.BalanceAfter)
}

func TestBalanceMatchesLedgerSum(t *testing.T) {
	store := newFakeStore()
	store.seedUser(1, 500)
	svc := NewWalletService(store, nil, zap.NewNop())

	_, err := svc.Spend(context.Background(), 1, 120, "a")
	require.NoError(t, err)
	_, err = svc.Adjust(context.Background(), 1, 20, "grant")
	require.NoError(t, err)

	mismatches, err := store.ReconcileBalances(context.Background())
	require.NoError(t, err)
	require.Empty(t, mismatches)
}
