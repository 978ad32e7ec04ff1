package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sarvcast/coinsvc/internal/config"
	"github.com/sarvcast/coinsvc/internal/model"
	"github.com/sarvcast/coinsvc/internal/repository"
)

// RedemptionService drives the cash-out workflow: create (debits coins),
// processing, completed, or a refunding cancel/fail.
type RedemptionService struct {
	store  RedemptionStore
	ledger LedgerStore
	cache  BalanceCache
	cfg    config.CoinsConfig
	logger *zap.Logger
}

func NewRedemptionService(store RedemptionStore, ledger LedgerStore, cache BalanceCache, cfg config.CoinsConfig, logger *zap.Logger) *RedemptionService {
	return &RedemptionService{store: store, ledger: ledger, cache: cache, cfg: cfg, logger: logger}
}

// CashValue converts coins to currency units at the configured rate,
// floor-rounded so there is never a fractional payout.
func (s *RedemptionService) CashValue(coins int64) int64 {
	return coins / s.cfg.RateCoins * s.cfg.RateUnits
}

// CreateRedemption validates the request, debits the coins and creates the
// pending request in one transaction.
func (s *RedemptionService) CreateRedemption(ctx context.Context, userID, coinAmount int64, paymentMethod string, payoutDetails json.RawMessage) (*model.RedemptionRequest, error) {
	if coinAmount < s.cfg.MinRedemptionCoins {
		return nil, fmt.Errorf("%w: minimum redemption is %d coins", model.ErrInvalidAmount, s.cfg.MinRedemptionCoins)
	}
	if paymentMethod == "" {
		return nil, fmt.Errorf("%w: payment method is required", model.ErrInvalidAmount)
	}
	if len(payoutDetails) == 0 {
		payoutDetails = json.RawMessage("{}")
	}

	if _, err := s.ledger.GetOrCreateUser(ctx, userID); err != nil {
		return nil, err
	}

	req := &model.RedemptionRequest{
		UserID:        userID,
		CoinAmount:    coinAmount,
		CashValue:     s.CashValue(coinAmount),
		PaymentMethod: paymentMethod,
		PayoutDetails: payoutDetails,
	}

	err := retryOnConflict(func() error {
		return s.store.CreateRedemption(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.logger.Info("redemption created",
		zap.String("id", req.ID.String()),
		zap.Int64("user_id", userID),
		zap.Int64("coin_amount", coinAmount),
		zap.Int64("cash_value", req.CashValue),
	)
	return req, nil
}

func (s *RedemptionService) GetRedemption(ctx context.Context, id uuid.UUID) (*model.RedemptionRequest, error) {
	return s.store.GetRedemption(ctx, id)
}

func (s *RedemptionService) ListUserRedemptions(ctx context.Context, userID int64, limit, offset int) ([]model.RedemptionRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.store.ListRedemptions(ctx, repository.RedemptionFilter{UserID: userID, Limit: limit, Offset: offset})
}

func (s *RedemptionService) ListRedemptions(ctx context.Context, filter repository.RedemptionFilter) ([]model.RedemptionRequest, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.store.ListRedemptions(ctx, filter)
}

// Cancel lets a user cancel their own pending request. The debited coins come
// back via a compensating entry appended by the transition.
func (s *RedemptionService) Cancel(ctx context.Context, userID int64, id uuid.UUID) (*model.RedemptionRequest, error) {
	req, err := s.store.GetRedemption(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, model.ErrNotFound
	}

	return s.transition(ctx, id, model.RedemptionStatusCancelled, repository.TransitionOptions{})
}

// AdminCancel cancels a pending request on behalf of a user.
func (s *RedemptionService) AdminCancel(ctx context.Context, id uuid.UUID, adminNotes string) (*model.RedemptionRequest, error) {
	return s.transition(ctx, id, model.RedemptionStatusCancelled, repository.TransitionOptions{AdminNotes: &adminNotes})
}

// MarkProcessing moves a pending request into processing while the payout is
// being executed.
func (s *RedemptionService) MarkProcessing(ctx context.Context, id uuid.UUID, adminNotes string) (*model.RedemptionRequest, error) {
	opts := repository.TransitionOptions{}
	if adminNotes != "" {
		opts.AdminNotes = &adminNotes
	}
	return s.transition(ctx, id, model.RedemptionStatusProcessing, opts)
}

// Complete finishes a processing request. The external payment reference is
// mandatory: a completed payout must be traceable.
func (s *RedemptionService) Complete(ctx context.Context, id uuid.UUID, paymentReference, trackingNumber string) (*model.RedemptionRequest, error) {
	if paymentReference == "" {
		return nil, fmt.Errorf("%w: completed redemption requires a payment reference", model.ErrInvalidStateTransition)
	}
	opts := repository.TransitionOptions{PaymentReference: &paymentReference}
	if trackingNumber != "" {
		opts.TrackingNumber = &trackingNumber
	}
	return s.transition(ctx, id, model.RedemptionStatusCompleted, opts)
}

// MarkFailed records a payout failure and refunds the coins.
func (s *RedemptionService) MarkFailed(ctx context.Context, id uuid.UUID, adminNotes string) (*model.RedemptionRequest, error) {
	opts := repository.TransitionOptions{}
	if adminNotes != "" {
		opts.AdminNotes = &adminNotes
	}
	return s.transition(ctx, id, model.RedemptionStatusFailed, opts)
}

func (s *RedemptionService) transition(ctx context.Context, id uuid.UUID, to model.RedemptionStatus, opts repository.TransitionOptions) (*model.RedemptionRequest, error) {
	var req *model.RedemptionRequest
	err := retryOnConflict(func() error {
		var err error
		req, err = s.store.TransitionRedemption(ctx, id, to, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	if to.Refunds() {
		s.invalidate(ctx, req.UserID)
	}
	return req, nil
}

func (s *RedemptionService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBalance(ctx, userID); err != nil {
		s.logger.Warn("balance cache invalidation failed", zap.Error(err), zap.Int64("user_id", userID))
	}
}
