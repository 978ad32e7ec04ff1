package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/sarvcast/coinsvc/internal/model"
)

// AppendEntry is the only mutation primitive of the coin ledger. It locks the
// user's balance row, verifies the entry keeps the balance non-negative,
// updates the cached balance and inserts the ledger row, all in one
// transaction. Amount is signed: credits positive, debits negative.
//
// A duplicate (user_id, source, reference_id) award maps to ErrDuplicateAward;
// a row lock held by a concurrent operation maps to ErrConcurrencyConflict.
func (r *Repository) AppendEntry(ctx context.Context, entry *model.LedgerEntry) (*model.LedgerEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := r.appendEntryTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// appendEntryTx runs the append inside the caller's transaction so redemption
// creation and refunds stay atomic with their workflow writes.
func (r *Repository) appendEntryTx(ctx context.Context, tx *sqlx.Tx, entry *model.LedgerEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	// Lock the balance row. NOWAIT turns lock contention into an immediate,
	// retryable conflict instead of queueing behind the other writer.
	var balanceBefore int64
	err := tx.GetContext(ctx, &balanceBefore,
		"SELECT coin_balance FROM users WHERE id = $1 FOR UPDATE NOWAIT", entry.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		if pgErrCode(err) == pgLockNotAvailable {
			return model.ErrConcurrencyConflict
		}
		return err
	}

	// No entry may take the balance below zero; this covers spend/redeem and
	// negative manual adjustments alike.
	balanceAfter := balanceBefore + entry.Amount
	if balanceAfter < 0 {
		return model.ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE users SET coin_balance = $1, updated_at = NOW() WHERE id = $2",
		balanceAfter, entry.UserID)
	if err != nil {
		return err
	}

	entry.ID = uuid.New()
	entry.BalanceBefore = balanceBefore
	entry.BalanceAfter = balanceAfter

	query := `
		INSERT INTO coin_ledger (id, user_id, amount, kind, source, reference_id, description, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err = tx.QueryRowContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Amount,
		entry.Kind,
		entry.Source,
		entry.ReferenceID,
		entry.Description,
		entry.BalanceBefore,
		entry.BalanceAfter,
	).Scan(&entry.CreatedAt)
	if err != nil {
		if pgErrCode(err) == pgUniqueViolation {
			return model.ErrDuplicateAward
		}
		r.logger.Error("ledger insert failed",
			zap.Error(err),
			zap.Int64("user_id", entry.UserID),
			zap.String("kind", string(entry.Kind)),
		)
		return err
	}
	return nil
}

func validateEntry(entry *model.LedgerEntry) error {
	switch entry.Kind {
	case model.EntryKindEarn:
		if entry.Amount <= 0 {
			return model.ErrInvalidAmount
		}
	case model.EntryKindSpend, model.EntryKindRedeem:
		if entry.Amount >= 0 {
			return model.ErrInvalidAmount
		}
	case model.EntryKindAdjust:
		if entry.Amount == 0 {
			return model.ErrInvalidAmount
		}
	default:
		return model.ErrInvalidAmount
	}
	return nil
}

// GetBalance reads the cached balance projection.
func (r *Repository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance, "SELECT coin_balance FROM users WHERE id = $1", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

// ListEntries returns a user's ledger entries, newest first.
func (r *Repository) ListEntries(ctx context.Context, userID int64, filter model.EntryFilter) ([]model.LedgerEntry, error) {
	builder := sq.Select("id", "user_id", "amount", "kind", "source", "reference_id", "description", "balance_before", "balance_after", "created_at").
		From("coin_ledger").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.Kind != "" {
		builder = builder.Where(sq.Eq{"kind": filter.Kind})
	}
	if filter.Source != "" {
		builder = builder.Where(sq.Eq{"source": filter.Source})
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

	var entries []model.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}

// SumEntries recomputes a user's balance from the ledger.
func (r *Repository) SumEntries(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.db.GetContext(ctx, &sum,
		"SELECT COALESCE(SUM(amount), 0) FROM coin_ledger WHERE user_id = $1", userID)
	return sum, err
}

// AppendCappedEntry appends an earn entry clipped so the user's earnings
// from the entry's source since the given time stay within limit. The earned
// sum is read only after the balance row lock is held: concurrent awards
// serialize on the lock, so the second always sees the first's entry and the
// cap cannot be overshot. Returns (nil, nil) when no headroom remains.
func (r *Repository) AppendCappedEntry(ctx context.Context, entry *model.LedgerEntry, limit int64, since time.Time) (*model.LedgerEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.GetContext(ctx, &balance,
		"SELECT coin_balance FROM users WHERE id = $1 FOR UPDATE NOWAIT", entry.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		if pgErrCode(err) == pgLockNotAvailable {
			return nil, model.ErrConcurrencyConflict
		}
		return nil, err
	}

	var earned int64
	err = tx.GetContext(ctx, &earned,
		`SELECT COALESCE(SUM(amount), 0) FROM coin_ledger
		 WHERE user_id = $1 AND kind = 'earn' AND source = $2 AND created_at >= $3`,
		entry.UserID, entry.Source, since)
	if err != nil {
		return nil, err
	}

	remaining := limit - earned
	if remaining <= 0 {
		return nil, nil
	}
	if entry.Amount > remaining {
		entry.Amount = remaining
	}

	// The row lock is already held; appendEntryTx's own FOR UPDATE re-locks
	// the same row within this transaction, which is a no-op.
	if err := r.appendEntryTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// ReconcileBalances compares every cached balance against its ledger sum and
// returns the users that drifted. It never repairs; that is a deliberate
// human decision.
func (r *Repository) ReconcileBalances(ctx context.Context) ([]model.BalanceMismatch, error) {
	query := `
		SELECT u.id AS user_id, u.coin_balance AS cached_balance, COALESCE(l.total, 0) AS ledger_sum
		FROM users u
		LEFT JOIN (
			SELECT user_id, SUM(amount) AS total FROM coin_ledger GROUP BY user_id
		) l ON l.user_id = u.id
		WHERE u.coin_balance <> COALESCE(l.total, 0)`

	var mismatches []model.BalanceMismatch
	if err := r.db.SelectContext(ctx, &mismatches, query); err != nil {
		return nil, err
	}
	return mismatches, nil
}
