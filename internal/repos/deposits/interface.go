package deposits

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrDepositNotFound    = errors.New("deposit request not found")
	ErrDuplicateReference = errors.New("duplicate deposit reference code")
	ErrDepositNotPending  = errors.New("deposit request is not pending")
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

type Method string

const (
	MethodCard        Method = "card"
	MethodBankAccount Method = "bank_account"
)

func (m Method) Valid() bool {
	return m == MethodCard || m == MethodBankAccount
}

const (
	ValidatorSystem        = "SYSTEM"
	ValidatorSystemWebhook = "SYSTEM_WEBHOOK"
	ValidatorSystemPoll    = "SYSTEM_POLL"
	ValidatorSystemSweep   = "SYSTEM_SWEEP"
)

type DepositRequest struct {
	ID                   string
	UserID               uint64
	Amount               decimal.Decimal
	PearlsAmount         decimal.Decimal
	PaymentMethod        Method
	ReferenceCode        string
	IntegrationMethod    string
	AutoApprovalEligible bool
	Status               Status
	ExpiresAt            time.Time
	ValidatedBy          string
	ValidatedAt          *time.Time
	AdminNotes           string
	TransactionID        string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Resolution moves a PENDING request to a terminal status.
type Resolution struct {
	Status      Status
	ValidatedBy string
	Notes       string
	At          time.Time
}

type Deposits interface {
	Insert(tx *sql.Tx, d DepositRequest) error
	Get(ctx context.Context, id string) (DepositRequest, error)
	LockByID(tx *sql.Tx, id string) (DepositRequest, error)
	// Resolve fails with ErrDepositNotPending if the row already left PENDING.
	Resolve(tx *sql.Tx, id string, r Resolution) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
}
