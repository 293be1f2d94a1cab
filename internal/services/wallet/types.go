package wallet

import (
	"errors"

	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/shopspring/decimal"
)

var (
	ErrWalletFrozen   = errors.New("wallet is frozen")
	ErrWalletInactive = errors.New("wallet is inactive")
	ErrInvalidAmount  = errors.New("amount must be positive with at most two decimals")
	ErrInvalidType    = errors.New("invalid transaction type")
	ErrLimitExceeded  = errors.New("debit limit exceeded")
	ErrSameWallet     = errors.New("sender and receiver are the same wallet")
	// ErrReceiverUnavailable wraps the reason a transfer receiver cannot
	// take funds. Callers facing the sender should not reveal that reason.
	ErrReceiverUnavailable = errors.New("receiver wallet unavailable")
	// ErrSettleMismatch means the pending ledger row does not describe the
	// credit being applied to it.
	ErrSettleMismatch = errors.New("pending transaction does not match credit")
)

type CreditRequest struct {
	UserID      uint64
	Amount      decimal.Decimal
	Description string
	// Type defaults to PRIZE_PAYOUT.
	Type        transactions.Type
	ReferenceID string
	AdminID     *uint64
	// SettleTxnID completes an existing PENDING ledger row instead of
	// inserting a new one.
	SettleTxnID string
}

type DebitRequest struct {
	UserID      uint64
	Amount      decimal.Decimal
	Description string
	Type        transactions.Type
	ReferenceID string
	ToUserID    *uint64
}

type Result struct {
	Wallet      wallets.Wallet
	Transaction transactions.Transaction
	NewBalance  decimal.Decimal
}

type TransferRequest struct {
	FromUserID  uint64
	ToUserID    uint64
	Amount      decimal.Decimal
	Commission  decimal.Decimal
	Description string
}

type TransferResult struct {
	CorrelationID   string
	SenderTxnID     string
	ReceiverTxnID   string
	CommissionTxnID string
	SenderBalance   decimal.Decimal
	Commission      decimal.Decimal
}

// Invariant compares a wallet balance with its ledger.
type Invariant struct {
	Balance   decimal.Decimal
	LedgerSum decimal.Decimal
}

func (i Invariant) Holds() bool {
	return i.Balance.Equal(i.LedgerSum)
}

func validAmount(a decimal.Decimal) bool {
	return a.IsPositive() && a.Equal(a.Round(2))
}
