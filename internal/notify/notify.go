// Package notify delivers user-facing notifications and operational alerts.
// Delivery is best effort: nothing here may roll back ledger state.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type DepositConfirmation struct {
	UserID        uint64          `json:"user_id"`
	DepositID     string          `json:"deposit_id"`
	ReferenceCode string          `json:"reference_code"`
	Amount        decimal.Decimal `json:"amount"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

type PaymentFailure struct {
	UserID        uint64          `json:"user_id"`
	DepositID     string          `json:"deposit_id"`
	ReferenceCode string          `json:"reference_code"`
	Amount        decimal.Decimal `json:"amount"`
	ErrorCode     string          `json:"error_code"`
	ErrorMessage  string          `json:"error_message"`
}

type TransferReceived struct {
	UserID        uint64          `json:"user_id"`
	FromUsername  string          `json:"from_username"`
	Amount        decimal.Decimal `json:"amount"`
	CorrelationID string          `json:"correlation_id"`
}

type Alert struct {
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Value     string    `json:"value"`
	Threshold string    `json:"threshold"`
	At        time.Time `json:"at"`
}

type Notifier interface {
	SendDepositConfirmation(ctx context.Context, n DepositConfirmation) error
	SendPaymentFailureNotification(ctx context.Context, n PaymentFailure) error
	SendTransferReceived(ctx context.Context, n TransferReceived) error
}

type Alerter interface {
	PublishAlert(ctx context.Context, a Alert) error
}

type Nop struct{}

func (Nop) SendDepositConfirmation(context.Context, DepositConfirmation) error   { return nil }
func (Nop) SendPaymentFailureNotification(context.Context, PaymentFailure) error { return nil }
func (Nop) SendTransferReceived(context.Context, TransferReceived) error         { return nil }
func (Nop) PublishAlert(context.Context, Alert) error                            { return nil }
