package wallets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type Wallet struct {
	UserID  uint64
	Balance decimal.Decimal
	// Zero limits mean unlimited.
	DailyLimit   decimal.Decimal
	MonthlyLimit decimal.Decimal
	IsActive     bool
	IsFrozen     bool
	FrozenReason string
	FrozenBy     *uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type FreezeUpdate struct {
	Frozen  bool
	Reason  string
	AdminID uint64
}

type Wallets interface {
	// Create is idempotent: an existing wallet is left untouched.
	Create(tx *sql.Tx, userID uint64) error
	Get(ctx context.Context, userID uint64) (Wallet, error)
	LockAndGet(tx *sql.Tx, userID uint64) (Wallet, error)
	IncreaseBalance(tx *sql.Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error)
	// DecreaseBalance returns ErrInsufficientFunds instead of going negative.
	DecreaseBalance(tx *sql.Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error)
	SetFrozen(tx *sql.Tx, userID uint64, upd FreezeUpdate) error
}
