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

func (r *Repository) CreateCommission(ctx context.Context, payment *model.CommissionPayment) error {
	payment.ID = uuid.New()
	payment.Status = model.CommissionStatusPending

	query := `
		INSERT INTO commission_payments (id, partner_id, amount, payment_type, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return r.db.QueryRowContext(ctx, query,
		payment.ID,
		payment.PartnerID,
		payment.Amount,
		payment.PaymentType,
		payment.Status,
		payment.Notes,
	).Scan(&payment.CreatedAt)
}

func (r *Repository) GetCommission(ctx context.Context, id uuid.UUID) (*model.CommissionPayment, error) {
	var payment model.CommissionPayment
	err := r.db.GetContext(ctx, &payment, "SELECT * FROM commission_payments WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

type CommissionFilter struct {
	PartnerID int64
	Status    model.CommissionStatus
	Limit     int
	Offset    int
}

func (r *Repository) ListCommissions(ctx context.Context, filter CommissionFilter) ([]model.CommissionPayment, error) {
	builder := sq.Select("*").
		From("commission_payments").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.PartnerID != 0 {
		builder = builder.Where(sq.Eq{"partner_id": filter.PartnerID})
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

	var payments []model.CommissionPayment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, err
	}
	return payments, nil
}

// TransitionCommission moves a commission payment to a new status under the
// same guard discipline as redemption requests.
func (r *Repository) TransitionCommission(ctx context.Context, id uuid.UUID, to model.CommissionStatus, opts TransitionOptions) (*model.CommissionPayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var payment model.CommissionPayment
	err = tx.GetContext(ctx, &payment, "SELECT * FROM commission_payments WHERE id = $1 FOR UPDATE NOWAIT", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		if pgErrCode(err) == pgLockNotAvailable {
			return nil, model.ErrConcurrencyConflict
		}
		return nil, err
	}

	if !payment.Status.CanTransition(to) {
		return nil, model.ErrInvalidStateTransition
	}

	if opts.PaymentReference != nil {
		payment.PaymentReference = opts.PaymentReference
	}
	if opts.AdminNotes != nil {
		payment.Notes = opts.AdminNotes
	}

	from := payment.Status
	payment.Status = to
	if to == model.CommissionStatusPaid || to == model.CommissionStatusFailed {
		now := time.Now()
		payment.ProcessedAt = &now
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE commission_payments SET
			status = $2,
			payment_reference = $3,
			notes = $4,
			processed_at = $5
		WHERE id = $1`,
		payment.ID, payment.Status, payment.PaymentReference, payment.Notes, payment.ProcessedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	r.logger.Info("commission transition",
		zap.String("id", payment.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return &payment, nil
}
