// Package gateway is the contract between the ledger and an external payment
// processor. Raw processor responses are converted to these types at the
// adapter boundary; nothing downstream compares status strings.
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodCard        Method = "card"
	MethodBankAccount Method = "bank_account"
)

type CustomerRequest struct {
	ExternalID string
	Name       string
	Email      string
	Phone      string
}

type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

type ChargeRequest struct {
	Method          Method
	Amount          decimal.Decimal
	Currency        string
	Description     string
	CustomerID      string
	SourceToken     string
	OrderID         string
	DeviceSessionID string
	DueDate         *time.Time
}

type CardDetails struct {
	Brand string
	Last4 string
}

// BankInstructions tell the payer where to send a SPEI transfer.
type BankInstructions struct {
	Bank      string
	CLABE     string
	Agreement string
	Name      string
	Reference string
}

type Charge struct {
	ID                string
	OrderID           string
	Status            ChargeStatus
	RawStatus         string
	Method            Method
	Amount            decimal.Decimal
	Currency          string
	AuthorizationCode string
	ErrorCode         string
	ErrorMessage      string
	Card              *CardDetails
	Bank              *BankInstructions
	RiskScore         *decimal.Decimal
	CreatedAt         time.Time
	ChargedAt         *time.Time
	DueDate           *time.Time
}

type Gateway interface {
	Name() string
	CreateCustomer(ctx context.Context, req CustomerRequest) (Customer, error)
	CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error)
	GetCharge(ctx context.Context, chargeID string) (Charge, error)
	VerifyWebhookSignature(payload []byte, signature, secret string) bool
}
