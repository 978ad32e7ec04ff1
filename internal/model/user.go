package model

import (
	"time"
)

// User carries the cached coin balance. The balance column is a projection of
// the coin_ledger and must always equal the sum of the user's entries; the
// reconciler flags any drift instead of repairing it.
type User struct {
	ID           int64     `json:"id" db:"id"`
	CoinBalance  int64     `json:"coin_balance" db:"coin_balance"`
	ReferralCode string    `json:"referral_code" db:"referral_code"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
