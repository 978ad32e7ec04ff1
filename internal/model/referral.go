package model

import (
	"time"

	"github.com/google/uuid"
)

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
)

type Referral struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	ReferrerID  int64          `json:"referrer_id" db:"referrer_id"`
	ReferredID  int64          `json:"referred_id" db:"referred_id"`
	Code        string         `json:"code" db:"code"`
	Status      ReferralStatus `json:"status" db:"status"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

type ReferralStats struct {
	TotalReferrals     int   `json:"total_referrals"`
	CompletedReferrals int   `json:"completed_referrals"`
	CoinsEarned        int64 `json:"coins_earned"`
}
