package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sarvcast/coinsvc/internal/model"
	"github.com/sarvcast/coinsvc/internal/repository"
)

// CommissionService manages affiliate partner payouts. Bulk actions treat
// each payment as its own transaction and report per-item results; a failure
// on one item never rolls back the rest.
type CommissionService struct {
	store  CommissionStore
	logger *zap.Logger
}

func NewCommissionService(store CommissionStore, logger *zap.Logger) *CommissionService {
	return &CommissionService{store: store, logger: logger}
}

func (s *CommissionService) Create(ctx context.Context, partnerID, amount int64, paymentType model.CommissionType, notes string) (*model.CommissionPayment, error) {
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}
	switch paymentType {
	case model.CommissionTypeCoupon, model.CommissionTypeReferral, model.CommissionTypeManual:
	default:
		return nil, fmt.Errorf("%w: unknown payment type %q", model.ErrInvalidAmount, paymentType)
	}

	payment := &model.CommissionPayment{
		PartnerID:   partnerID,
		Amount:      amount,
		PaymentType: paymentType,
	}
	if notes != "" {
		payment.Notes = &notes
	}

	if err := s.store.CreateCommission(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *CommissionService) Get(ctx context.Context, id uuid.UUID) (*model.CommissionPayment, error) {
	return s.store.GetCommission(ctx, id)
}

func (s *CommissionService) List(ctx context.Context, filter repository.CommissionFilter) ([]model.CommissionPayment, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.store.ListCommissions(ctx, filter)
}

// Process moves a pending payment into processing.
func (s *CommissionService) Process(ctx context.Context, id uuid.UUID) (*model.CommissionPayment, error) {
	return s.transition(ctx, id, model.CommissionStatusProcessing, repository.TransitionOptions{})
}

// MarkPaid finishes a processing payment with its external reference.
func (s *CommissionService) MarkPaid(ctx context.Context, id uuid.UUID, paymentReference string) (*model.CommissionPayment, error) {
	if paymentReference == "" {
		return nil, fmt.Errorf("%w: paid commission requires a payment reference", model.ErrInvalidStateTransition)
	}
	return s.transition(ctx, id, model.CommissionStatusPaid, repository.TransitionOptions{PaymentReference: &paymentReference})
}

// MarkFailed records a payout failure.
func (s *CommissionService) MarkFailed(ctx context.Context, id uuid.UUID, notes string) (*model.CommissionPayment, error) {
	opts := repository.TransitionOptions{}
	if notes != "" {
		opts.AdminNotes = &notes
	}
	return s.transition(ctx, id, model.CommissionStatusFailed, opts)
}

// BulkTransition applies one workflow action to many payments, one
// transaction per payment.
func (s *CommissionService) BulkTransition(ctx context.Context, ids []uuid.UUID, to model.CommissionStatus, paymentReference string) []model.BulkResult {
	results := make([]model.BulkResult, 0, len(ids))
	for _, id := range ids {
		var err error
		switch to {
		case model.CommissionStatusProcessing:
			_, err = s.Process(ctx, id)
		case model.CommissionStatusPaid:
			_, err = s.MarkPaid(ctx, id, paymentReference)
		case model.CommissionStatusFailed:
			_, err = s.MarkFailed(ctx, id, "")
		default:
			err = model.ErrInvalidStateTransition
		}

		result := model.BulkResult{ID: id, Success: err == nil}
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

func (s *CommissionService) transition(ctx context.Context, id uuid.UUID, to model.CommissionStatus, opts repository.TransitionOptions) (*model.CommissionPayment, error) {
	var payment *model.CommissionPayment
	err := retryOnConflict(func() error {
		var err error
		payment, err = s.store.TransitionCommission(ctx, id, to, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}
