package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RedemptionStatus string

const (
	RedemptionStatusPending    RedemptionStatus = "pending"
	RedemptionStatusProcessing RedemptionStatus = "processing"
	RedemptionStatusCompleted  RedemptionStatus = "completed"
	RedemptionStatusCancelled  RedemptionStatus = "cancelled"
	RedemptionStatusFailed     RedemptionStatus = "failed"
)

// redemptionTransitions is the full transition table. completed, cancelled and
// failed are terminal.
var redemptionTransitions = map[RedemptionStatus][]RedemptionStatus{
	RedemptionStatusPending:    {RedemptionStatusProcessing, RedemptionStatusCancelled, RedemptionStatusFailed},
	RedemptionStatusProcessing: {RedemptionStatusCompleted, RedemptionStatusFailed},
}

// CanTransition reports whether a redemption may move from one status to another.
func (s RedemptionStatus) CanTransition(to RedemptionStatus) bool {
	for _, next := range redemptionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s RedemptionStatus) Terminal() bool {
	return len(redemptionTransitions[s]) == 0
}

// Refunds reports whether moving to this status must append a compensating
// earn entry returning the debited coins.
func (s RedemptionStatus) Refunds() bool {
	return s == RedemptionStatusCancelled || s == RedemptionStatusFailed
}

// RedemptionRequest is a cash-out request. The coin debit happens in the same
// transaction that creates the request; cancellation and failure refund it
// with a compensating ledger entry, never by mutating the original.
type RedemptionRequest struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	UserID           int64            `json:"user_id" db:"user_id"`
	CoinAmount       int64            `json:"coin_amount" db:"coin_amount"`
	CashValue        int64            `json:"cash_value" db:"cash_value"`
	PaymentMethod    string           `json:"payment_method" db:"payment_method"`
	PayoutDetails    json.RawMessage  `json:"payout_details" db:"payout_details"`
	Status           RedemptionStatus `json:"status" db:"status"`
	TrackingNumber   *string          `json:"tracking_number,omitempty" db:"tracking_number"`
	PaymentReference *string          `json:"payment_reference,omitempty" db:"payment_reference"`
	Notes            *string          `json:"notes,omitempty" db:"notes"`
	AdminNotes       *string          `json:"admin_notes,omitempty" db:"admin_notes"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty" db:"processed_at"`
}
