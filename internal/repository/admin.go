package repository

import (
	"context"
	"database/sql"
	"errors"
)

func (r *Repository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM admins WHERE user_id = $1)", userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	return exists, nil
}
