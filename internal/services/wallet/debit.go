package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/shopspring/decimal"
)

func (s *Service) Debit(ctx context.Context, req DebitRequest) (Result, error) {
	var res Result

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error

		res, err = s.DebitTx(tx, req)

		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("debit: %w", err)
	}

	s.audit.Record(ctx, audit.Record{
		Action:    audit.ActionWalletDebited,
		Actor:     "system",
		UserID:    req.UserID,
		SubjectID: "transaction:" + res.Transaction.ID,
		Details: map[string]any{
			"amount":      res.Transaction.Amount.StringFixed(2),
			"new_balance": res.NewBalance.StringFixed(2),
			"type":        res.Transaction.Type,
		},
		At: s.clock(),
	})

	return res, nil
}

func (s *Service) DebitTx(tx *sql.Tx, req DebitRequest) (Result, error) {
	if !validAmount(req.Amount) {
		return Result{}, ErrInvalidAmount
	}

	if !req.Type.Valid() {
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

	if w.Balance.LessThan(req.Amount) {
		return Result{}, wallets.ErrInsufficientFunds
	}

	now := s.clock()

	err = s.checkLimits(tx, w, req.Amount, now)
	if err != nil {
		return Result{}, err
	}

	newBalance, err := s.wallets.DecreaseBalance(tx, req.UserID, req.Amount)
	if err != nil {
		return Result{}, fmt.Errorf("decrease balance: %w", err)
	}

	t := transactions.Transaction{
		ID:           ids.NewID(),
		UserID:       req.UserID,
		Type:         req.Type,
		Amount:       req.Amount.Neg(),
		PearlsAmount: req.Amount.Neg(),
		Description:  req.Description,
		Status:       transactions.StatusCompleted,
		ToUserID:     req.ToUserID,
		ReferenceID:  req.ReferenceID,
		CreatedAt:    now,
		CompletedAt:  &now,
	}

	err = s.txns.Insert(tx, t)
	if err != nil {
		return Result{}, fmt.Errorf("insert transaction: %w", err)
	}

	w.Balance = newBalance
	w.UpdatedAt = now

	return Result{Wallet: w, Transaction: t, NewBalance: newBalance}, nil
}

// checkLimits enforces the wallet's daily and monthly debit caps. Zero
// means no cap. Days and months are counted in UTC.
func (s *Service) checkLimits(tx *sql.Tx, w wallets.Wallet, amount decimal.Decimal, now time.Time) error {
	limits := []struct {
		cap   decimal.Decimal
		since time.Time
		name  string
	}{
		{cap: w.DailyLimit, since: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), name: "daily"},
		{cap: w.MonthlyLimit, since: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), name: "monthly"},
	}

	for _, l := range limits {
		if !l.cap.IsPositive() {
			continue
		}

		spent, err := s.txns.SumDebitsSince(tx, w.UserID, l.since)
		if err != nil {
			return fmt.Errorf("sum %s debits: %w", l.name, err)
		}

		if spent.Add(amount).GreaterThan(l.cap) {
			return fmt.Errorf("%s limit %s: %w", l.name, l.cap.StringFixed(2), ErrLimitExceeded)
		}
	}

	return nil
}
