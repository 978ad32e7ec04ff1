package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/sarvcast/coinsvc/internal/model"
)

func (r *Repository) CreateReferral(ctx context.Context, referral *model.Referral) error {
	referral.ID = uuid.New()
	referral.Status = model.ReferralStatusPending

	query := `
		INSERT INTO referrals (id, referrer_id, referred_id, code, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		referral.ID,
		referral.ReferrerID,
		referral.ReferredID,
		referral.Code,
		referral.Status,
	).Scan(&referral.CreatedAt)
	if err != nil {
		if pgErrCode(err) == pgUniqueViolation {
			return model.ErrReferralExists
		}
		return err
	}
	return nil
}

func (r *Repository) GetReferral(ctx context.Context, id uuid.UUID) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.GetContext(ctx, &referral, "SELECT * FROM referrals WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &referral, nil
}

func (r *Repository) GetReferralByReferredID(ctx context.Context, referredID int64) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.GetContext(ctx, &referral, "SELECT * FROM referrals WHERE referred_id = $1", referredID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &referral, nil
}

func (r *Repository) CompleteReferral(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE referrals SET status = 'completed', completed_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return model.ErrInvalidStateTransition
	}
	return nil
}

func (r *Repository) GetReferralStats(ctx context.Context, referrerID int64) (*model.ReferralStats, error) {
	var stats model.ReferralStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'completed')
		FROM referrals WHERE referrer_id = $1`, referrerID).
		Scan(&stats.TotalReferrals, &stats.CompletedReferrals)
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &stats.CoinsEarned, `
		SELECT COALESCE(SUM(amount), 0) FROM coin_ledger
		WHERE user_id = $1 AND kind = 'earn' AND source = 'referral'`, referrerID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
