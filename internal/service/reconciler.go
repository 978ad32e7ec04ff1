package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sarvcast/coinsvc/internal/model"
)

type ReconcileStore interface {
	ReconcileBalances(ctx context.Context) ([]model.BalanceMismatch, error)
}

// Reconciler periodically recomputes every balance from the ledger and flags
// cached balances that drifted. It only reports; repairing a mismatch means
// someone bypassed the ledger and deserves investigation, not auto-healing.
type Reconciler struct {
	store    ReconcileStore
	interval time.Duration
	logger   *zap.Logger
}

func NewReconciler(store ReconcileStore, interval time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, interval: interval, logger: logger}
}

func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("reconciler started", zap.Duration("interval", r.interval))

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error("reconciliation run failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("reconciliation run failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single reconciliation pass and returns the mismatches.
func (r *Reconciler) RunOnce(ctx context.Context) ([]model.BalanceMismatch, error) {
	mismatches, err := r.store.ReconcileBalances(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range mismatches {
		r.logger.Error("balance mismatch detected",
			zap.Int64("user_id", m.UserID),
			zap.Int64("cached_balance", m.CachedBalance),
			zap.Int64("ledger_sum", m.LedgerSum),
		)
	}
	if len(mismatches) == 0 {
		r.logger.Debug("reconciliation clean")
	}
	return mismatches, nil
}
