package memstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fastprodman/perlas-wallet/internal/repos/users"
)

type usersView struct{ s *Store }

func (v usersView) Exists(_ *sql.Tx, userID uint64) error {
	err := v.s.lock("users.Exists")
	if err != nil {
		return err
	}
	defer v.s.mu.Unlock()

	_, ok := v.s.st.users[userID]
	if !ok {
		return users.ErrUserNotFound
	}

	return nil
}

func (v usersView) GetByID(_ context.Context, userID uint64) (users.User, error) {
	err := v.s.lock("users.GetByID")
	if err != nil {
		return users.User{}, err
	}
	defer v.s.mu.Unlock()

	u, ok := v.s.st.users[userID]
	if !ok {
		return users.User{}, users.ErrUserNotFound
	}

	return u, nil
}

func (v usersView) GetByUsername(_ context.Context, username string) (users.User, error) {
	err := v.s.lock("users.GetByUsername")
	if err != nil {
		return users.User{}, err
	}
	defer v.s.mu.Unlock()

	for _, u := range v.s.st.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}

	return users.User{}, users.ErrUserNotFound
}
