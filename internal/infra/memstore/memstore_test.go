package memstore

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/fastprodman/perlas-wallet/internal/repos/users"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/shopspring/decimal"
)

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	s := New()
	s.AddUser(users.User{ID: 10, Username: "a"})

	err := s.WithTx(t.Context(), func(_ *sql.Tx) error {
		return s.Wallets().Create(nil, 10)
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")

	err = s.WithTx(t.Context(), func(_ *sql.Tx) error {
		_, err := s.Wallets().IncreaseBalance(nil, 10, decimal.NewFromInt(5))
		if err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	w, err := s.Wallets().Get(t.Context(), 10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("balance = %s, want 0 after rollback", w.Balance)
	}
}

func TestStore_FailOn(t *testing.T) {
	t.Parallel()

	s := New()
	boom := errors.New("injected")

	s.FailOn("wallets.Get", boom)

	_, err := s.Wallets().Get(t.Context(), 1)
	if !errors.Is(err, boom) {
		t.Fatalf("want injected error, got %v", err)
	}

	s.FailOn("wallets.Get", nil)

	_, err = s.Wallets().Get(t.Context(), 1)
	if !errors.Is(err, wallets.ErrWalletNotFound) {
		t.Fatalf("want ErrWalletNotFound, got %v", err)
	}
}
