package memstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/shopspring/decimal"
)

type walletsView struct{ s *Store }

func (v walletsView) Create(_ *sql.Tx, userID uint64) error {
	err := v.s.lock("wallets.Create")
	if err != nil {
		return err
	}
	defer v.s.mu.Unlock()

	_, ok := v.s.st.wallets[userID]
	if ok {
		return nil
	}

	now := time.Now().UTC()
	v.s.st.wallets[userID] = wallets.Wallet{UserID: userID, IsActive: true, CreatedAt: now, UpdatedAt: now}

	return nil
}

func (v walletsView) Get(_ context.Context, userID uint64) (wallets.Wallet, error) {
	return v.get("wallets.Get", userID)
}

func (v walletsView) LockAndGet(_ *sql.Tx, userID uint64) (wallets.Wallet, error) {
	return v.get("wallets.LockAndGet", userID)
}

func (v walletsView) get(op string, userID uint64) (wallets.Wallet, error) {
	err := v.s.lock(op)
	if err != nil {
		return wallets.Wallet{}, err
	}
	defer v.s.mu.Unlock()

	w, ok := v.s.st.wallets[userID]
	if !ok {
		return wallets.Wallet{}, wallets.ErrWalletNotFound
	}

	return w, nil
}

func (v walletsView) IncreaseBalance(_ *sql.Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	err := v.s.lock("wallets.IncreaseBalance")
	if err != nil {
		return decimal.Zero, err
	}
	defer v.s.mu.Unlock()

	w, ok := v.s.st.wallets[userID]
	if !ok {
		return decimal.Zero, wallets.ErrWalletNotFound
	}

	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = time.Now().UTC()
	v.s.st.wallets[userID] = w

	return w.Balance, nil
}

func (v walletsView) DecreaseBalance(_ *sql.Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	err := v.s.lock("wallets.DecreaseBalance")
	if err != nil {
		return decimal.Zero, err
	}
	defer v.s.mu.Unlock()

	w, ok := v.s.st.wallets[userID]
	if !ok || w.Balance.LessThan(amount) {
		return decimal.Zero, wallets.ErrInsufficientFunds
	}

	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = time.Now().UTC()
	v.s.st.wallets[userID] = w

	return w.Balance, nil
}

func (v walletsView) SetFrozen(_ *sql.Tx, userID uint64, upd wallets.FreezeUpdate) error {
	err := v.s.lock("wallets.SetFrozen")
	if err != nil {
		return err
	}
	defer v.s.mu.Unlock()

	w, ok := v.s.st.wallets[userID]
	if !ok {
		return wallets.ErrWalletNotFound
	}

	w.IsFrozen = upd.Frozen
	w.FrozenReason = ""
	w.FrozenBy = nil

	if upd.Frozen {
		adminID := upd.AdminID
		w.FrozenReason = upd.Reason
		w.FrozenBy = &adminID
	}

	w.UpdatedAt = time.Now().UTC()
	v.s.st.wallets[userID] = w

	return nil
}

// SetWallet overwrites a wallet row, for seeding limits and flags in tests.
func (s *Store) SetWallet(w wallets.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.wallets[w.UserID] = w
}
