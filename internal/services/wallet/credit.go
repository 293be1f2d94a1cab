package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
)

func (s *Service) Credit(ctx context.Context, req CreditRequest) (Result, error) {
	var res Result

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error

		res, err = s.CreditTx(tx, req)

		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("credit: %w", err)
	}

	action := audit.ActionWalletCredited
	actor := "system"

	if req.AdminID != nil {
		action = audit.ActionAdminCredit
		actor = "admin:" + strconv.FormatUint(*req.AdminID, 10)
	}

	s.audit.Record(ctx, audit.Record{
		Action:    action,
		Actor:     actor,
		UserID:    req.UserID,
		SubjectID: "transaction:" + res.Transaction.ID,
		Details: map[string]any{
			"amount":      res.Transaction.Amount.StringFixed(2),
			"new_balance": res.NewBalance.StringFixed(2),
			"type":        res.Transaction.Type,
			"reference":   req.ReferenceID,
		},
		At: s.clock(),
	})

	return res, nil
}

// CreditTx applies a credit inside a transaction owned by the caller, who is
// also responsible for auditing it after commit.
func (s *Service) CreditTx(tx *sql.Tx, req CreditRequest) (Result, error) {
	if !validAmount(req.Amount) {
		return Result{}, ErrInvalidAmount
	}

	typ := req.Type
	if typ == "" {
		typ = transactions.TypePrizePayout
	}

	if !typ.Valid() {
		return Result{}, ErrInvalidType
	}

	w, err := s.wallets.LockAndGet(tx, req.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("lock wallet: %w", err)
	}

	err = usable(w)
	if err != nil {
		return Result{}, err
	}

	now := s.clock()

	var t transactions.Transaction

	if req.SettleTxnID != "" {
		t, err = s.txns.LockByID(tx, req.SettleTxnID)
		if err != nil {
			return Result{}, fmt.Errorf("lock pending transaction: %w", err)
		}

		if t.UserID != req.UserID || !t.Amount.Equal(req.Amount) {
			return Result{}, ErrSettleMismatch
		}

		err = s.txns.SetStatus(tx, t.ID, transactions.StatusPending, transactions.StatusCompleted, now)
		if err != nil {
			return Result{}, fmt.Errorf("complete pending transaction: %w", err)
		}

		t.Status = transactions.StatusCompleted
		t.CompletedAt = &now
	} else {
		t = transactions.Transaction{
			ID:           ids.NewID(),
			UserID:       req.UserID,
			Type:         typ,
			Amount:       req.Amount,
			PearlsAmount: req.Amount,
			Description:  req.Description,
			Status:       transactions.StatusCompleted,
			ReferenceID:  req.ReferenceID,
			AdminID:      req.AdminID,
			CreatedAt:    now,
			CompletedAt:  &now,
		}

		err = s.txns.Insert(tx, t)
		if err != nil {
			return Result{}, fmt.Errorf("insert transaction: %w", err)
		}
	}

	newBalance, err := s.wallets.IncreaseBalance(tx, req.UserID, req.Amount)
	if err != nil {
		return Result{}, fmt.Errorf("increase balance: %w", err)
	}

	w.Balance = newBalance
	w.UpdatedAt = now

	return Result{Wallet: w, Transaction: t, NewBalance: newBalance}, nil
}
