package gatewaytxns

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrGatewayTxnNotFound = errors.New("gateway transaction not found")
	ErrDuplicateCharge    = errors.New("duplicate external charge id")
)

// GatewayTransaction mirrors one charge as the payment gateway reports it.
// External status changes are recorded here before they are translated into
// deposit and ledger state.
type GatewayTransaction struct {
	ID                string
	DepositRequestID  string
	ExternalChargeID  string
	Gateway           string
	Amount            decimal.Decimal
	Currency          string
	Method            string
	CardBrand         string
	CardLast4         string
	BankName          string
	BankReference     string
	ExternalStatus    string
	ErrorCode         string
	ErrorMessage      string
	CustomerID        string
	AuthorizationCode string
	DeviceSessionID   string
	RiskScore         *decimal.Decimal
	ChargedAt         *time.Time
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type StatusUpdate struct {
	ExternalStatus    string
	ErrorCode         string
	ErrorMessage      string
	AuthorizationCode string
	ChargedAt         *time.Time
	At                time.Time
}

type GatewayTxns interface {
	Insert(tx *sql.Tx, g GatewayTransaction) error
	LockByChargeID(tx *sql.Tx, chargeID string) (GatewayTransaction, error)
	UpdateStatus(tx *sql.Tx, chargeID string, upd StatusUpdate) error
	GetByDepositID(ctx context.Context, depositID string) (GatewayTransaction, error)
}
