package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

type txnsView struct{ s *Store }

func (v txnsView) Insert(_ *sql.Tx, t transactions.Transaction) error {
	err := v.s.lock("transactions.Insert")
	if err != nil {
		return err
	}
	defer v.s.mu.Unlock()

	_, ok := v.s.st.txns[t.ID]
	if ok {
		return transactions.ErrDuplicateTransaction
	}

	v.s.st.txns[t.ID] = t
	v.s.st.txnSeq[t.ID] = len(v.s.st.txnSeq)

	return nil
}

func (v txnsView) SetStatus(_ *sql.Tx, id string, from, to transactions.Status, at time.Time) error {
	err := v.s.lock("transactions.SetStatus")
	if err != nil {
		return err
	}
	defer v.s.mu.Unlock()

	t, ok := v.s.st.txns[id]
	if !ok || t.Status != from {
		return fmt.Errorf("transaction %s: %w", id, transactions.ErrStatusConflict)
	}

	t.Status = to
	if to == transactions.StatusCompleted {
		t.CompletedAt = &at
	}

	v.s.st.txns[id] = t

	return nil
}

func (v txnsView) Get(_ context.Context, id string) (transactions.Transaction, error) {
	return v.get("transactions.Get", id)
}

func (v txnsView) LockByID(_ *sql.Tx, id string) (transactions.Transaction, error) {
	return v.get("transactions.LockByID", id)
}

func (v txnsView) get(op, id string) (transactions.Transaction, error) {
	err := v.s.lock(op)
	if err != nil {
		return transactions.Transaction{}, err
	}
	defer v.s.mu.Unlock()

	t, ok := v.s.st.txns[id]
	if !ok {
		return transactions.Transaction{}, transactions.ErrTransactionNotFound
	}

	return t, nil
}

func (v txnsView) List(_ context.Context, userID uint64, f transactions.Filter) ([]transactions.Transaction, error) {
	err := v.s.lock("transactions.List")
	if err != nil {
		return nil, err
	}
	defer v.s.mu.Unlock()

	var out []transactions.Transaction

	for _, t := range v.s.st.txns {
		switch {
		case t.UserID != userID,
			f.Type != "" && t.Type != f.Type,
			f.Status != "" && t.Status != f.Status,
			!f.From.IsZero() && t.CreatedAt.Before(f.From),
			!f.To.IsZero() && !t.CreatedAt.Before(f.To):
			continue
		}

		out = append(out, t)
	}

	slices.SortFunc(out, func(a, b transactions.Transaction) int {
		c := b.CreatedAt.Compare(a.CreatedAt)
		if c != 0 {
			return c
		}
		return v.s.st.txnSeq[b.ID] - v.s.st.txnSeq[a.ID]
	})

	offset := min(max(f.Offset, 0), len(out))
	out = out[offset:]

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	return out[:min(limit, len(out))], nil
}

func (v txnsView) SumCompleted(_ *sql.Tx, userID uint64) (decimal.Decimal, error) {
	err := v.s.lock("transactions.SumCompleted")
	if err != nil {
		return decimal.Zero, err
	}
	defer v.s.mu.Unlock()

	sum := decimal.Zero

	for _, t := range v.s.st.txns {
		if t.UserID == userID && t.Status == transactions.StatusCompleted {
			sum = sum.Add(t.Amount)
		}
	}

	return sum, nil
}

func (v txnsView) SumDebitsSince(_ *sql.Tx, userID uint64, since time.Time) (decimal.Decimal, error) {
	err := v.s.lock("transactions.SumDebitsSince")
	if err != nil {
		return decimal.Zero, err
	}
	defer v.s.mu.Unlock()

	sum := decimal.Zero

	for _, t := range v.s.st.txns {
		if t.UserID == userID && t.Status == transactions.StatusCompleted &&
			t.Amount.IsNegative() && !t.CreatedAt.Before(since) {
			sum = sum.Sub(t.Amount)
		}
	}

	return sum, nil
}

// AllTransactions returns every ledger row, for assertions.
func (s *Store) AllTransactions() []transactions.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]transactions.Transaction, 0, len(s.st.txns))
	for _, t := range s.st.txns {
		out = append(out, t)
	}

	slices.SortFunc(out, func(a, b transactions.Transaction) int {
		return s.st.txnSeq[a.ID] - s.st.txnSeq[b.ID]
	})

	return out
}
