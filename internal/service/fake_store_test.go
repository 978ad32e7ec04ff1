package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sarvcast/coinsvc/internal/model"
	"github.com/sarvcast/coinsvc/internal/repository"
)

// fakeStore is an in-memory stand-in for *repository.Repository that keeps
// the same invariants: non-negative balances, award idempotency, atomic
// debit+request creation and compensating refunds. The mutex plays the role
// of the balance row lock: appends serialize on it.
type fakeStore struct {
	mu          sync.Mutex
	users       map[int64]*model.User
	entries     []model.LedgerEntry
	redemptions map[uuid.UUID]*model.RedemptionRequest
	commissions map[uuid.UUID]*model.CommissionPayment
	referrals   map[uuid.UUID]*model.Referral

	// conflicts makes the next N appends fail with ErrConcurrencyConflict.
	conflicts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[int64]*model.User),
		redemptions: make(map[uuid.UUID]*model.RedemptionRequest),
		commissions: make(map[uuid.UUID]*model.CommissionPayment),
		referrals:   make(map[uuid.UUID]*model.Referral),
	}
}

func (f *fakeStore) seedUser(id int64, balance int64) {
	f.users[id] = &model.User{ID: id, CoinBalance: balance, ReferralCode: "CODE" + uuid.NewString()[:4]}
	if balance != 0 {
		f.entries = append(f.entries, model.LedgerEntry{
			ID:           uuid.New(),
			UserID:       id,
			Amount:       balance,
			Kind:         model.EntryKindEarn,
			Source:       model.SourceBonus,
			BalanceAfter: balance,
			CreatedAt:    time.Now(),
		})
	}
}

func (f *fakeStore) balance(id int64) int64 {
	if u, ok := f.users[id]; ok {
		return u.CoinBalance
	}
	return 0
}

// ----- LedgerStore -----

func (f *fakeStore) AppendEntry(_ context.Context, entry *model.LedgerEntry) (*model.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendEntry(entry)
}

// AppendCappedEntry reads the earned sum under the same lock the append
// takes, mirroring the repository's locked cap check.
func (f *fakeStore) AppendCappedEntry(_ context.Context, entry *model.LedgerEntry, limit int64, since time.Time) (*model.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var earned int64
	for _, e := range f.entries {
		if e.UserID == entry.UserID && e.Kind == model.EntryKindEarn && e.Source == entry.Source && !e.CreatedAt.Before(since) {
			earned += e.Amount
		}
	}
	remaining := limit - earned
	if remaining <= 0 {
		return nil, nil
	}
	if entry.Amount > remaining {
		entry.Amount = remaining
	}
	return f.appendEntry(entry)
}

func (f *fakeStore) appendEntry(entry *model.LedgerEntry) (*model.LedgerEntry, error) {
	if f.conflicts > 0 {
		f.conflicts--
		return nil, model.ErrConcurrencyConflict
	}

	switch entry.Kind {
	case model.EntryKindEarn:
		if entry.Amount <= 0 {
			return nil, model.ErrInvalidAmount
		}
	case model.EntryKindSpend, model.EntryKindRedeem:
		if entry.Amount >= 0 {
			return nil, model.ErrInvalidAmount
		}
	case model.EntryKindAdjust:
		if entry.Amount == 0 {
			return nil, model.ErrInvalidAmount
		}
	default:
		return nil, model.ErrInvalidAmount
	}

	user, ok := f.users[entry.UserID]
	if !ok {
		return nil, model.ErrNotFound
	}

	if entry.Kind == model.EntryKindEarn && entry.ReferenceID != nil && entry.Source != model.SourceRedemption {
		for _, e := range f.entries {
			if e.UserID == entry.UserID && e.Kind == model.EntryKindEarn &&
				e.Source == entry.Source && e.ReferenceID != nil && *e.ReferenceID == *entry.ReferenceID {
				return nil, model.ErrDuplicateAward
			}
		}
	}

	after := user.CoinBalance + entry.Amount
	if after < 0 {
		return nil, model.ErrInsufficientFunds
	}

	entry.ID = uuid.New()
	entry.BalanceBefore = user.CoinBalance
	entry.BalanceAfter = after
	entry.CreatedAt = time.Now()
	user.CoinBalance = after
	f.entries = append(f.entries, *entry)
	return entry, nil
}

func (f *fakeStore) GetBalance(_ context.Context, userID int64) (int64, error) {
	user, ok := f.users[userID]
	if !ok {
		return 0, model.ErrNotFound
	}
	return user.CoinBalance, nil
}

func (f *fakeStore) ListEntries(_ context.Context, userID int64, filter model.EntryFilter) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.UserID != userID {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.Source != "" && e.Source != filter.Source {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrCreateUser(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	user := &model.User{ID: id, ReferralCode: "CODE" + uuid.NewString()[:4]}
	f.users[id] = user
	return user, nil
}

func (f *fakeStore) GetUserByReferralCode(_ context.Context, code string) (*model.User, error) {
	for _, user := range f.users {
		if user.ReferralCode == code {
			return user, nil
		}
	}
	return nil, model.ErrNotFound
}

// ----- ReconcileStore -----

func (f *fakeStore) ReconcileBalances(_ context.Context) ([]model.BalanceMismatch, error) {
	sums := make(map[int64]int64)
	for _, e := range f.entries {
		sums[e.UserID] += e.Amount
	}
	var out []model.BalanceMismatch
	for id, user := range f.users {
		if user.CoinBalance != sums[id] {
			out = append(out, model.BalanceMismatch{UserID: id, CachedBalance: user.CoinBalance, LedgerSum: sums[id]})
		}
	}
	return out, nil
}

// ----- RedemptionStore -----

func (f *fakeStore) CreateRedemption(ctx context.Context, req *model.RedemptionRequest) error {
	req.ID = uuid.New()
	ref := req.ID.String()
	_, err := f.AppendEntry(ctx, &model.LedgerEntry{
		UserID:      req.UserID,
		Amount:      -req.CoinAmount,
		Kind:        model.EntryKindRedeem,
		Source:      model.SourceRedemption,
		ReferenceID: &ref,
	})
	if err != nil {
		return err
	}

	req.Status = model.RedemptionStatusPending
	req.CreatedAt = time.Now()
	f.redemptions[req.ID] = req
	return nil
}

func (f *fakeStore) GetRedemption(_ context.Context, id uuid.UUID) (*model.RedemptionRequest, error) {
	req, ok := f.redemptions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (f *fakeStore) ListRedemptions(_ context.Context, filter repository.RedemptionFilter) ([]model.RedemptionRequest, error) {
	var out []model.RedemptionRequest
	for _, req := range f.redemptions {
		if filter.UserID != 0 && req.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

func (f *fakeStore) TransitionRedemption(ctx context.Context, id uuid.UUID, to model.RedemptionStatus, opts repository.TransitionOptions) (*model.RedemptionRequest, error) {
	req, ok := f.redemptions[id]
	if !ok {
		return nil, model.ErrNotFound
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

	req.Status = to
	if to.Terminal() {
		now := time.Now()
		req.ProcessedAt = &now
	}

	if to.Refunds() {
		ref := req.ID.String() + ":refund"
		if _, err := f.AppendEntry(ctx, &model.LedgerEntry{
			UserID:      req.UserID,
			Amount:      req.CoinAmount,
			Kind:        model.EntryKindEarn,
			Source:      model.SourceRedemption,
			ReferenceID: &ref,
		}); err != nil {
			return nil, err
		}
	}

	copied := *req
	return &copied, nil
}

// ----- CommissionStore -----

func (f *fakeStore) CreateCommission(_ context.Context, payment *model.CommissionPayment) error {
	payment.ID = uuid.New()
	payment.Status = model.CommissionStatusPending
	payment.CreatedAt = time.Now()
	f.commissions[payment.ID] = payment
	return nil
}

func (f *fakeStore) GetCommission(_ context.Context, id uuid.UUID) (*model.CommissionPayment, error) {
	payment, ok := f.commissions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	copied := *payment
	return &copied, nil
}

func (f *fakeStore) ListCommissions(_ context.Context, filter repository.CommissionFilter) ([]model.CommissionPayment, error) {
	var out []model.CommissionPayment
	for _, payment := range f.commissions {
		if filter.PartnerID != 0 && payment.PartnerID != filter.PartnerID {
			continue
		}
		if filter.Status != "" && payment.Status != filter.Status {
			continue
		}
		out = append(out, *payment)
	}
	return out, nil
}

func (f *fakeStore) TransitionCommission(_ context.Context, id uuid.UUID, to model.CommissionStatus, opts repository.TransitionOptions) (*model.CommissionPayment, error) {
	payment, ok := f.commissions[id]
	if !ok {
		return nil, model.ErrNotFound
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

	payment.Status = to
	if to == model.CommissionStatusPaid || to == model.CommissionStatusFailed {
		now := time.Now()
		payment.ProcessedAt = &now
	}

	copied := *payment
	return &copied, nil
}

// ----- ReferralStore -----

func (f *fakeStore) CreateReferral(_ context.Context, referral *model.Referral) error {
	for _, existing := range f.referrals {
		if existing.ReferredID == referral.ReferredID {
			return model.ErrReferralExists
		}
	}
	referral.ID = uuid.New()
	referral.Status = model.ReferralStatusPending
	referral.CreatedAt = time.Now()
	f.referrals[referral.ID] = referral
	return nil
}

func (f *fakeStore) GetReferralByReferredID(_ context.Context, referredID int64) (*model.Referral, error) {
	for _, referral := range f.referrals {
		if referral.ReferredID == referredID {
			copied := *referral
			return &copied, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) CompleteReferral(_ context.Context, id uuid.UUID) error {
	referral, ok := f.referrals[id]
	if !ok {
		return model.ErrNotFound
	}
	if referral.Status != model.ReferralStatusPending {
		return model.ErrInvalidStateTransition
	}
	now := time.Now()
	referral.Status = model.ReferralStatusCompleted
	referral.CompletedAt = &now
	return nil
}

func (f *fakeStore) GetReferralStats(_ context.Context, referrerID int64) (*model.ReferralStats, error) {
	stats := &model.ReferralStats{}
	for _, referral := range f.referrals {
		if referral.ReferrerID != referrerID {
			continue
		}
		stats.TotalReferrals++
		if referral.Status == model.ReferralStatusCompleted {
			stats.CompletedReferrals++
		}
	}
	for _, e := range f.entries {
		if e.UserID == referrerID && e.Kind == model.EntryKindEarn && e.Source == model.SourceReferral {
			stats.CoinsEarned += e.Amount
		}
	}
	return stats, nil
}
