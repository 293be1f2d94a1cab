package transactions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrTransactionNotFound  = errors.New("transaction not found")
	// ErrStatusConflict means the row was not in the expected status.
	ErrStatusConflict = errors.New("transaction status conflict")
)

type Type string

const (
	TypeCardPurchase  Type = "CARD_PURCHASE"
	TypePrizePayout   Type = "PRIZE_PAYOUT"
	TypePearlPurchase Type = "PEARL_PURCHASE"
	TypePearlTransfer Type = "PEARL_TRANSFER"
	TypeWithdrawal    Type = "WITHDRAWAL"
	TypeCommission    Type = "COMMISSION"
)

func (t Type) Valid() bool {
	switch t {
	case TypeCardPurchase, TypePrizePayout, TypePearlPurchase, TypePearlTransfer, TypeWithdrawal, TypeCommission:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Transaction is an append-only ledger row. Amount is signed from the point
// of view of UserID.
type Transaction struct {
	ID            string
	UserID        uint64
	Type          Type
	Amount        decimal.Decimal
	PearlsAmount  decimal.Decimal
	Description   string
	Status        Status
	FromUserID    *uint64
	ToUserID      *uint64
	ReferenceID   string
	CorrelationID string
	AdminID       *uint64
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

type Filter struct {
	Type   Type
	Status Status
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type Transactions interface {
	Insert(tx *sql.Tx, t Transaction) error
	// SetStatus moves a row from one status to another and fails with
	// ErrStatusConflict when the row is not in status from.
	SetStatus(tx *sql.Tx, id string, from, to Status, at time.Time) error
	Get(ctx context.Context, id string) (Transaction, error)
	LockByID(tx *sql.Tx, id string) (Transaction, error)
	List(ctx context.Context, userID uint64, f Filter) ([]Transaction, error)
	// SumCompleted is the ledger side of the balance invariant. It runs on
	// the transaction that holds the wallet lock.
	SumCompleted(tx *sql.Tx, userID uint64) (decimal.Decimal, error)
	// SumDebitsSince returns the absolute value of completed debits.
	SumDebitsSince(tx *sql.Tx, userID uint64, since time.Time) (decimal.Decimal, error)
}
