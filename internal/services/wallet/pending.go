package wallet

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

type PendingRequest struct {
	UserID      uint64
	Amount      decimal.Decimal
	Type        transactions.Type
	Description string
	ReferenceID string
}

// OpenPendingTx records a credit that has not settled yet. It does not touch
// the balance; CreditTx with SettleTxnID completes it later.
func (s *Service) OpenPendingTx(tx *sql.Tx, req PendingRequest) (transactions.Transaction, error) {
	if !validAmount(req.Amount) {
		return transactions.Transaction{}, ErrInvalidAmount
	}

	if !req.Type.Valid() {
		return transactions.Transaction{}, ErrInvalidType
	}

	t := transactions.Transaction{
		ID:           ids.NewID(),
		UserID:       req.UserID,
		Type:         req.Type,
		Amount:       req.Amount,
		PearlsAmount: req.Amount,
		Description:  req.Description,
		Status:       transactions.StatusPending,
		ReferenceID:  req.ReferenceID,
		CreatedAt:    s.clock(),
	}

	err := s.txns.Insert(tx, t)
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("insert pending transaction: %w", err)
	}

	return t, nil
}

// ClosePendingTx marks a pending row FAILED or CANCELLED.
func (s *Service) ClosePendingTx(tx *sql.Tx, txnID string, status transactions.Status) error {
	if status != transactions.StatusFailed && status != transactions.StatusCancelled {
		return fmt.Errorf("close pending transaction as %s: %w", status, transactions.ErrStatusConflict)
	}

	err := s.txns.SetStatus(tx, txnID, transactions.StatusPending, status, s.clock())
	if err != nil {
		return fmt.Errorf("close pending transaction: %w", err)
	}

	return nil
}

// Usable reports whether the wallet can take part in a new operation.
func (s *Service) Usable(ctx context.Context, userID uint64) error {
	w, err := s.wallets.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get wallet: %w", err)
	}

	return usable(w)
}
