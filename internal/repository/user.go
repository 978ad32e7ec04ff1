package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"

	"github.com/sarvcast/coinsvc/internal/model"
)

func (r *Repository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetOrCreateUser provisions the balance row on first contact. User identity
// lives in the main SarvCast backend; here a user is just an id plus its coin
// account.
func (r *Repository) GetOrCreateUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := r.GetUser(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	query := `
		INSERT INTO users (id, coin_balance, referral_code)
		VALUES ($1, 0, $2)
		ON CONFLICT (id) DO UPDATE SET updated_at = users.updated_at
		RETURNING *`

	var created model.User
	if err := r.db.GetContext(ctx, &created, query, id, generateReferralCode()); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *Repository) GetUserByReferralCode(ctx context.Context, code string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, "SELECT * FROM users WHERE referral_code = $1", code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateReferralCode() string {
	code := make([]byte, 8)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeAlphabet))))
		if err != nil {
			n = big.NewInt(int64(i % len(referralCodeAlphabet)))
		}
		code[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(code)
}
