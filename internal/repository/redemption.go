package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sarvcast/coinsvc/internal/model"
)

// CreateRedemption debits the coins and creates the pending request in one
// transaction, so a crash can never leave a debit without its request.
func (r *Repository) CreateRedemption(ctx context.Context, req *model.RedemptionRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	req.ID = uuid.New()
	ref := req.ID.String()

	entry := &model.LedgerEntry{
		UserID:      req.UserID,
		Amount:      -req.CoinAmount,
		Kind:        model.EntryKindRedeem,
		Source:      model.SourceRedemption,
		ReferenceID: &ref,
	}
	if err := r.appendEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	query := `
		INSERT INTO redemption_requests (id, user_id, coin_amount, cash_value, payment_method, payout_details, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err = tx.QueryRowContext(ctx, query,
		req.ID,
		req.UserID,
		req.CoinAmount,
		req.CashValue,
		req.PaymentMethod,
		req.PayoutDetails,
		model.RedemptionStatusPending,
		req.Notes,
	).Scan(&req.CreatedAt)
	if err != nil {
		r.logger.Error("redemption insert failed", zap.Error(err), zap.Int64("user_id", req.UserID))
		return err
	}
	req.Status = model.RedemptionStatusPending

	return tx.Commit()
}

func (r *Repository) GetRedemption(ctx context.Context, id uuid.UUID) (*model.RedemptionRequest, error) {
	var req model.RedemptionRequest
	err := r.db.GetContext(ctx, &req, "SELECT * FROM redemption_requests WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// RedemptionFilter narrows ListRedemptions; zero values mean no filter.
type RedemptionFilter struct {
	UserID int64
	Status model.RedemptionStatus
	Limit  int
	Offset int
}

func (r *Repository) ListRedemptions(ctx context.Context, filter RedemptionFilter) ([]model.RedemptionRequest, error) {
	builder := sq.Select("*").
		From("redemption_requests").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.UserID != 0 {
		builder = builder.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var reqs []model.RedemptionRequest
	if err := r.db.SelectContext(ctx, &reqs, query, args...); err != nil {
		return nil, err
	}
	return reqs, nil
}

// TransitionOptions carries the optional fields a workflow transition may set.
type TransitionOptions struct {
	PaymentReference *string
	TrackingNumber   *string
	AdminNotes       *string
}

// TransitionRedemption moves a request to a new status under the transition
// table guard. Refunding transitions (cancelled, failed) append exactly one
// compensating earn entry in the same transaction; the original debit is
// never touched.
func (r *Repository) TransitionRedemption(ctx context.Context, id uuid.UUID, to model.RedemptionStatus, opts TransitionOptions) (*model.RedemptionRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var req model.RedemptionRequest
	err = tx.GetContext(ctx, &req, "SELECT * FROM redemption_requests WHERE id = $1 FOR UPDATE NOWAIT", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		if pgErrCode(err) == pgLockNotAvailable {
			return nil, model.ErrConcurrencyConflict
		}
		return nil, err
	}

	if !req.Status.CanTransition(to) {
		return nil, model.ErrInvalidStateTransition
	}

	if opts.PaymentReference != nil {
		req.PaymentReference = opts.PaymentReference
	}
	if opts.TrackingNumber != nil {
		req.TrackingNumber = opts.TrackingNumber
	}
	if opts.AdminNotes != nil {
		req.AdminNotes = opts.AdminNotes
	}

	from := req.Status
	req.Status = to
	if to.Terminal() {
		now := time.Now()
		req.ProcessedAt = &now
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE redemption_requests SET
			status = $2,
			payment_reference = $3,
			tracking_number = $4,
			admin_notes = $5,
			processed_at = $6
		WHERE id = $1`,
		req.ID, req.Status, req.PaymentReference, req.TrackingNumber, req.AdminNotes, req.ProcessedAt)
	if err != nil {
		return nil, err
	}

	if to.Refunds() {
		ref := req.ID.String() + ":refund"
		desc := "Refund for " + string(to) + " redemption request"
		refund := &model.LedgerEntry{
			UserID:      req.UserID,
			Amount:      req.CoinAmount,
			Kind:        model.EntryKindEarn,
			Source:      model.SourceRedemption,
			ReferenceID: &ref,
			Description: &desc,
		}
		if err := r.appendEntryTx(ctx, tx, refund); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	r.logger.Info("redemption transition",
		zap.String("id", req.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return &req, nil
}
