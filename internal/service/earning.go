package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sarvcast/coinsvc/internal/config"
	"github.com/sarvcast/coinsvc/internal/model"
)

// EarningService awards coins for quiz completions and referrals. Awards are
// idempotent per (user, source, reference): the ledger's uniqueness
// constraint makes a repeated award a no-op rather than a double credit.
type EarningService struct {
	store     LedgerStore
	referrals ReferralStore
	cache     BalanceCache
	cfg       config.CoinsConfig
	logger    *zap.Logger
}

func NewEarningService(store LedgerStore, referrals ReferralStore, cache BalanceCache, cfg config.CoinsConfig, logger *zap.Logger) *EarningService {
	return &EarningService{store: store, referrals: referrals, cache: cache, cfg: cfg, logger: logger}
}

// AwardForQuiz credits coins for a quiz submission on an episode. The award
// is clipped by the daily quiz cap; an exhausted cap and a repeated
// submission both return (nil, nil) so user flows are never blocked.
func (s *EarningService) AwardForQuiz(ctx context.Context, userID, episodeID int64, correctCount int) (*model.LedgerEntry, error) {
	if correctCount <= 0 {
		return nil, nil
	}

	if _, err := s.store.GetOrCreateUser(ctx, userID); err != nil {
		return nil, err
	}

	ref := fmt.Sprintf("episode:%d", episodeID)
	description := fmt.Sprintf("Quiz reward: %d correct answers", correctCount)
	entry := &model.LedgerEntry{
		UserID:      userID,
		Amount:      int64(correctCount) * s.cfg.QuizCoinsPerCorrect,
		Kind:        model.EntryKindEarn,
		Source:      model.SourceQuiz,
		ReferenceID: &ref,
		Description: &description,
	}

	// The daily-cap read happens under the balance row lock inside the
	// append, so concurrent awards cannot both see pre-append headroom.
	var appended *model.LedgerEntry
	err := retryOnConflict(func() error {
		var err error
		appended, err = s.store.AppendCappedEntry(ctx, entry, s.cfg.QuizDailyCap, startOfDay(time.Now().UTC()))
		return err
	})
	if errors.Is(err, model.ErrDuplicateAward) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if appended == nil {
		s.logger.Info("quiz daily cap reached",
			zap.Int64("user_id", userID),
			zap.Int64("episode_id", episodeID),
		)
		return nil, nil
	}

	s.invalidate(ctx, userID)
	return appended, nil
}

// ApplyReferralCode registers a pending referral between the owner of the
// code and the new user. Coins are credited later, when the referral
// completes.
func (s *EarningService) ApplyReferralCode(ctx context.Context, userID int64, code string) (*model.Referral, error) {
	referrer, err := s.store.GetUserByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrer.ID == userID {
		return nil, model.ErrSelfReferral
	}

	if _, err := s.store.GetOrCreateUser(ctx, userID); err != nil {
		return nil, err
	}

	referral := &model.Referral{
		ReferrerID: referrer.ID,
		ReferredID: userID,
		Code:       code,
	}
	if err := s.referrals.CreateReferral(ctx, referral); err != nil {
		return nil, err
	}
	return referral, nil
}

// CompleteReferral marks the referred user's referral completed and credits
// both sides. Called by the main backend once the referred user qualifies
// (finished registration, first purchase). Each credit is idempotent, so
// re-delivery of the completion event cannot double-pay.
func (s *EarningService) CompleteReferral(ctx context.Context, referredID int64) ([]model.LedgerEntry, error) {
	referral, err := s.referrals.GetReferralByReferredID(ctx, referredID)
	if err != nil {
		return nil, err
	}

	if referral.Status == model.ReferralStatusPending {
		if err := s.referrals.CompleteReferral(ctx, referral.ID); err != nil &&
			!errors.Is(err, model.ErrInvalidStateTransition) {
			return nil, err
		}
	}

	ref := referral.ID.String()
	awards := []struct {
		userID int64
		coins  int64
		desc   string
	}{
		{referral.ReferrerID, s.cfg.ReferrerCoins, "Referral reward: invited user completed signup"},
		{referral.ReferredID, s.cfg.RefereeCoins, "Welcome reward: joined via referral"},
	}

	var entries []model.LedgerEntry
	for _, award := range awards {
		if award.coins <= 0 {
			continue
		}
		desc := award.desc
		entry := &model.LedgerEntry{
			UserID:      award.userID,
			Amount:      award.coins,
			Kind:        model.EntryKindEarn,
			Source:      model.SourceReferral,
			ReferenceID: &ref,
			Description: &desc,
		}
		err := retryOnConflict(func() error {
			_, err := s.store.AppendEntry(ctx, entry)
			return err
		})
		if errors.Is(err, model.ErrDuplicateAward) {
			continue
		}
		if err != nil {
			return entries, err
		}
		s.invalidate(ctx, award.userID)
		entries = append(entries, *entry)
	}
	return entries, nil
}

// AwardBonus credits a one-off bonus, e.g. a campaign or compensation grant.
// The reference keeps repeated grants for the same campaign idempotent.
func (s *EarningService) AwardBonus(ctx context.Context, userID int64, coins int64, reference, description string) (*model.LedgerEntry, error) {
	if coins <= 0 {
		return nil, model.ErrInvalidAmount
	}

	if _, err := s.store.GetOrCreateUser(ctx, userID); err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		UserID:      userID,
		Amount:      coins,
		Kind:        model.EntryKindEarn,
		Source:      model.SourceBonus,
		ReferenceID: &reference,
		Description: &description,
	}
	err := retryOnConflict(func() error {
		_, err := s.store.AppendEntry(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return entry, nil
}

func (s *EarningService) GetReferralStats(ctx context.Context, userID int64) (*model.ReferralStats, error) {
	return s.referrals.GetReferralStats(ctx, userID)
}

func (s *EarningService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBalance(ctx, userID); err != nil {
		s.logger.Warn("balance cache invalidation failed", zap.Error(err), zap.Int64("user_id", userID))
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
