package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/users"
)

func (r *usersRepo) GetByID(ctx context.Context, userID uint64) (users.User, error) {
	return r.getOne(ctx, `SELECT id, username, display_name FROM users WHERE id = $1`, userID)
}

// GetByUsername matches case-insensitively; usernames are typed by people.
func (r *usersRepo) GetByUsername(ctx context.Context, username string) (users.User, error) {
	return r.getOne(ctx, `SELECT id, username, display_name FROM users WHERE lower(username) = lower($1)`, username)
}

func (r *usersRepo) getOne(ctx context.Context, query string, arg any) (users.User, error) {
	var u users.User

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return users.User{}, users.ErrUserNotFound
	}
	if err != nil {
		return users.User{}, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}
