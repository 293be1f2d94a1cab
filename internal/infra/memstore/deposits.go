package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
)

type depositsView struct{ s *Store }

func (v depositsView) Insert(_ *sql.Tx, d deposits.DepositRequest) error {
	err := v.s.lock("deposits.Insert")
	if err != nil {
		return err
	}
	defer v.s.mu.Unlock()

	for _, existing := range v.s.st.deposits {
		if existing.ReferenceCode == d.ReferenceCode {
			return deposits.ErrDuplicateReference
		}
	}

	v.s.st.deposits[d.ID] = d

	return nil
}

func (v depositsView) Get(_ context.Context, id string) (deposits.DepositRequest, error) {
	return v.get("deposits.Get", id)
}

func (v depositsView) LockByID(_ *sql.Tx, id string) (deposits.DepositRequest, error) {
	return v.get("deposits.LockByID", id)
}

func (v depositsView) get(op, id string) (deposits.DepositRequest, error) {
	err := v.s.lock(op)
	if err != nil {
		return deposits.DepositRequest{}, err
	}
	defer v.s.mu.Unlock()

	d, ok := v.s.st.deposits[id]
	if !ok {
		return deposits.DepositRequest{}, deposits.ErrDepositNotFound
	}

	return d, nil
}

func (v depositsView) Resolve(_ *sql.Tx, id string, r deposits.Resolution) error {
	err := v.s.lock("deposits.Resolve")
	if err != nil {
		return err
	}
	defer v.s.mu.Unlock()

	if !r.Status.Terminal() {
		return fmt.Errorf("resolve deposit to %s: not a terminal status", r.Status)
	}

	d, ok := v.s.st.deposits[id]
	if !ok || d.Status != deposits.StatusPending {
		return fmt.Errorf("deposit %s: %w", id, deposits.ErrDepositNotPending)
	}

	at := r.At
	d.Status = r.Status
	d.ValidatedBy = r.ValidatedBy
	d.ValidatedAt = &at
	d.UpdatedAt = at

	if r.Notes != "" {
		d.AdminNotes = r.Notes
	}

	v.s.st.deposits[id] = d

	return nil
}

func (v depositsView) ListExpired(_ context.Context, now time.Time, limit int) ([]string, error) {
	err := v.s.lock("deposits.ListExpired")
	if err != nil {
		return nil, err
	}
	defer v.s.mu.Unlock()

	var due []deposits.DepositRequest

	for _, d := range v.s.st.deposits {
		if d.Status == deposits.StatusPending && !d.ExpiresAt.After(now) {
			due = append(due, d)
		}
	}

	slices.SortFunc(due, func(a, b deposits.DepositRequest) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})

	out := make([]string, 0, min(limit, len(due)))
	for _, d := range due[:min(limit, len(due))] {
		out = append(out, d.ID)
	}

	return out, nil
}

// SetDeposit overwrites a deposit row, e.g. to backdate it in tests.
func (s *Store) SetDeposit(d deposits.DepositRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.deposits[d.ID] = d
}
