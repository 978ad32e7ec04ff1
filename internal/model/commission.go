package model

import (
	"time"

	"github.com/google/uuid"
)

type CommissionType string

const (
	CommissionTypeCoupon   CommissionType = "coupon_commission"
	CommissionTypeReferral CommissionType = "referral_commission"
	CommissionTypeManual   CommissionType = "manual"
)

type CommissionStatus string

const (
	CommissionStatusPending    CommissionStatus = "pending"
	CommissionStatusProcessing CommissionStatus = "processing"
	CommissionStatusPaid       CommissionStatus = "paid"
	CommissionStatusFailed     CommissionStatus = "failed"
)

var commissionTransitions = map[CommissionStatus][]CommissionStatus{
	CommissionStatusPending:    {CommissionStatusProcessing, CommissionStatusFailed},
	CommissionStatusProcessing: {CommissionStatusPaid, CommissionStatusFailed},
}

// CanTransition reports whether a commission payment may move between statuses.
func (s CommissionStatus) CanTransition(to CommissionStatus) bool {
	for _, next := range commissionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CommissionPayment is a payout owed to an affiliate partner. It follows the
// same workflow discipline as redemption requests, but partner money lives
// outside the coin ledger so no compensating entries are involved.
type CommissionPayment struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	PartnerID        int64            `json:"partner_id" db:"partner_id"`
	Amount           int64            `json:"amount" db:"amount"` // currency units, not coins
	PaymentType      CommissionType   `json:"payment_type" db:"payment_type"`
	Status           CommissionStatus `json:"status" db:"status"`
	PaymentReference *string          `json:"payment_reference,omitempty" db:"payment_reference"`
	Notes            *string          `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty" db:"processed_at"`
}

// BulkResult is the per-item outcome of a bulk workflow action. Bulk actions
// never roll back the whole batch; each item is its own transaction.
type BulkResult struct {
	ID      uuid.UUID `json:"id"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
}
