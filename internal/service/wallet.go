package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sarvcast/coinsvc/internal/model"
)

type WalletService struct {
	store  LedgerStore
	cache  BalanceCache
	logger *zap.Logger
}

func NewWalletService(store LedgerStore, cache BalanceCache, logger *zap.Logger) *WalletService {
	return &WalletService{store: store, cache: cache, logger: logger}
}

// GetBalance returns the user's coin balance, serving from the cache when
// possible. Unknown users are provisioned with a zero balance.
func (s *WalletService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	if s.cache != nil {
		if balance, err := s.cache.GetBalance(ctx, userID); err == nil {
			return balance, nil
		}
	}

	user, err := s.store.GetOrCreateUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.SetBalance(ctx, userID, user.CoinBalance); err != nil {
			s.logger.Warn("balance cache set failed", zap.Error(err), zap.Int64("user_id", userID))
		}
	}
	return user.CoinBalance, nil
}

// GetTransactions returns the user's ledger history, newest first.
func (s *WalletService) GetTransactions(ctx context.Context, userID int64, filter model.EntryFilter) ([]model.LedgerEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.store.ListEntries(ctx, userID, filter)
}

// Spend debits coins for an in-app purchase. Amount is the positive number of
// coins to spend; itemRef identifies the purchased item.
func (s *WalletService) Spend(ctx context.Context, userID int64, amount int64, itemRef string) (*model.LedgerEntry, error) {
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}

	if _, err := s.store.GetOrCreateUser(ctx, userID); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Spent %d coins on %s", amount, itemRef)
	entry := &model.LedgerEntry{
		UserID:      userID,
		Amount:      -amount,
		Kind:        model.EntryKindSpend,
		Source:      model.SourcePurchase,
		ReferenceID: &itemRef,
		Description: &description,
	}

	err := retryOnConflict(func() error {
		_, err := s.store.AppendEntry(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return entry, nil
}

// Adjust applies a manual admin correction. Amount may be negative, but the
// balance can never go below zero.
func (s *WalletService) Adjust(ctx context.Context, userID int64, amount int64, description string) (*model.LedgerEntry, error) {
	if _, err := s.store.GetOrCreateUser(ctx, userID); err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		UserID:      userID,
		Amount:      amount,
		Kind:        model.EntryKindAdjust,
		Source:      model.SourceManual,
		Description: &description,
	}

	err := retryOnConflict(func() error {
		_, err := s.store.AppendEntry(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return entry, nil
}

func (s *WalletService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBalance(ctx, userID); err != nil {
		s.logger.Warn("balance cache invalidation failed", zap.Error(err), zap.Int64("user_id", userID))
	}
}
