package users

import (
	"context"
	"database/sql"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// User is the read-only projection of the account owner the ledger needs.
// Registration and profile management live outside this service.
type User struct {
	ID          uint64
	Username    string
	DisplayName string
}

type Users interface {
	Exists(tx *sql.Tx, userID uint64) error
	GetByID(ctx context.Context, userID uint64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
}
