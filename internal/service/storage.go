package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sarvcast/coinsvc/internal/model"
	"github.com/sarvcast/coinsvc/internal/repository"
)

// Storage interfaces consumed by the services. *repository.Repository
// satisfies all of them; tests substitute in-memory fakes.

type LedgerStore interface {
	AppendEntry(ctx context.Context, entry *model.LedgerEntry) (*model.LedgerEntry, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	ListEntries(ctx context.Context, userID int64, filter model.EntryFilter) ([]model.LedgerEntry, error)
	AppendCappedEntry(ctx context.Context, entry *model.LedgerEntry, limit int64, since time.Time) (*model.LedgerEntry, error)
	GetOrCreateUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*model.User, error)
}

type RedemptionStore interface {
	CreateRedemption(ctx context.Context, req *model.RedemptionRequest) error
	GetRedemption(ctx context.Context, id uuid.UUID) (*model.RedemptionRequest, error)
	ListRedemptions(ctx context.Context, filter repository.RedemptionFilter) ([]model.RedemptionRequest, error)
	TransitionRedemption(ctx context.Context, id uuid.UUID, to model.RedemptionStatus, opts repository.TransitionOptions) (*model.RedemptionRequest, error)
}

type CommissionStore interface {
	CreateCommission(ctx context.Context, payment *model.CommissionPayment) error
	GetCommission(ctx context.Context, id uuid.UUID) (*model.CommissionPayment, error)
	ListCommissions(ctx context.Context, filter repository.CommissionFilter) ([]model.CommissionPayment, error)
	TransitionCommission(ctx context.Context, id uuid.UUID, to model.CommissionStatus, opts repository.TransitionOptions) (*model.CommissionPayment, error)
}

type ReferralStore interface {
	CreateReferral(ctx context.Context, referral *model.Referral) error
	GetReferralByReferredID(ctx context.Context, referredID int64) (*model.Referral, error)
	CompleteReferral(ctx context.Context, id uuid.UUID) error
	GetReferralStats(ctx context.Context, referrerID int64) (*model.ReferralStats, error)
}

// BalanceCache is the optional redis projection of balances. Services treat a
// nil cache as disabled.
type BalanceCache interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	SetBalance(ctx context.Context, userID int64, balance int64) error
	InvalidateBalance(ctx context.Context, userID int64) error
}

// retryOnConflict retries fn once when the balance row is locked by a
// concurrent writer. A second conflict surfaces to the caller, who may back
// off and retry.
func retryOnConflict(fn func() error) error {
	err := fn()
	if errors.Is(err, model.ErrConcurrencyConflict) {
		return fn()
	}
	return err
}
