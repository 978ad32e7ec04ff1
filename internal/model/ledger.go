package model

import (
	"time"

	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryKindEarn   EntryKind = "earn"
	EntryKindSpend  EntryKind = "spend"
	EntryKindRedeem EntryKind = "redeem"
	EntryKindAdjust EntryKind = "adjust"
)

// Debit reports whether entries of this kind remove coins and therefore
// require a sufficient balance.
func (k EntryKind) Debit() bool {
	return k == EntryKindSpend || k == EntryKindRedeem
}

type EntrySource string

const (
	SourceQuiz       EntrySource = "quiz"
	SourceReferral   EntrySource = "referral"
	SourceBonus      EntrySource = "bonus"
	SourcePurchase   EntrySource = "purchase"
	SourceRedemption EntrySource = "redemption"
	SourceManual     EntrySource = "manual"
)

// LedgerEntry is one immutable balance-affecting event. The sum of a user's
// entries defines their balance; entries are never updated or deleted.
type LedgerEntry struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	UserID        int64       `json:"user_id" db:"user_id"`
	Amount        int64       `json:"amount" db:"amount"` // positive = credit, negative = debit
	Kind          EntryKind   `json:"kind" db:"kind"`
	Source        EntrySource `json:"source" db:"source"`
	ReferenceID   *string     `json:"reference_id,omitempty" db:"reference_id"`
	Description   *string     `json:"description,omitempty" db:"description"`
	BalanceBefore int64       `json:"balance_before" db:"balance_before"`
	BalanceAfter  int64       `json:"balance_after" db:"balance_after"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// EntryFilter narrows ListEntries results.
type EntryFilter struct {
	Kind   EntryKind
	Source EntrySource
	Limit  int
	Offset int
}

// BalanceMismatch is a reconciliation finding: a cached balance that does not
// equal the ledger sum for that user.
type BalanceMismatch struct {
	UserID        int64 `json:"user_id" db:"user_id"`
	CachedBalance int64 `json:"cached_balance" db:"cached_balance"`
	LedgerSum     int64 `json:"ledger_sum" db:"ledger_sum"`
}
