package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/infra/pgtestutil"
	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/shopspring/decimal"
)

func seedWallet(t *testing.T, db *sql.DB, userID uint64, balance string) {
	t.Helper()

	pgtestutil.SeedUser(t, db, userID, fmt.Sprintf("user_%d", userID))

	_, err := db.Exec(`INSERT INTO wallets (user_id, balance) VALUES ($1, $2)`, userID, balance)
	if err != nil {
		t.Fatalf("seed wallet(%d): %v", userID, err)
	}
}

func TestWallets_DecreaseBalance_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		seedBalance string // empty: no wallet
		amount      string
		wantBalance string
		wantErr     error
	}{
		{name: "sufficient_funds", seedBalance: "100.00", amount: "25.50", wantBalance: "74.50"},
		{name: "exact_to_zero", seedBalance: "30.00", amount: "30.00", wantBalance: "0"},
		{name: "insufficient_funds_unchanged", seedBalance: "20.00", amount: "20.01", wantBalance: "20.00", wantErr: wallets.ErrInsufficientFunds},
		{name: "missing_wallet", amount: "1.00", wantErr: wallets.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			const userID = 501
			if tt.seedBalance != "" {
				seedWallet(t, db, userID, tt.seedBalance)
			}

			repo := New(db)

			err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
				_, err := repo.DecreaseBalance(tx, userID, decimal.RequireFromString(tt.amount))
				return err
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("decrease balance: %v", err)
			}

			if tt.seedBalance == "" {
				return
			}

			w, err := repo.Get(t.Context(), userID)
			if err != nil {
				t.Fatalf("get wallet: %v", err)
			}

			if !w.Balance.Equal(decimal.RequireFromString(tt.wantBalance)) {
				t.Fatalf("balance = %s, want %s", w.Balance, tt.wantBalance)
			}
		})
	}
}

func TestWallets_Create_Idempotent(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedWallet(t, db, 502, "12.00")

	repo := New(db)

	for range 2 {
		err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
			return repo.Create(tx, 502)
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	w, err := repo.Get(t.Context(), 502)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !w.Balance.Equal(decimal.RequireFromString("12.00")) {
		t.Fatalf("create must not reset balance, got %s", w.Balance)
	}
}

func TestWallets_Get_NotFound(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	_, err := New(db).Get(t.Context(), 999_999)
	if !errors.Is(err, wallets.ErrWalletNotFound) {
		t.Fatalf("want ErrWalletNotFound, got %v", err)
	}
}

func TestWallets_SetFrozen(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedWallet(t, db, 503, "0")

	repo := New(db)

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		return repo.SetFrozen(tx, 503, wallets.FreezeUpdate{Frozen: true, Reason: "chargeback", AdminID: 7})
	})
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}

	w, err := repo.Get(t.Context(), 503)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !w.IsFrozen || w.FrozenReason != "chargeback" || w.FrozenBy == nil || *w.FrozenBy != 7 {
		t.Fatalf("unexpected frozen state: %+v", w)
	}

	err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		return repo.SetFrozen(tx, 503, wallets.FreezeUpdate{Frozen: false, AdminID: 7})
	})
	if err != nil {
		t.Fatalf("unfreeze: %v", err)
	}

	w, err = repo.Get(t.Context(), 503)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if w.IsFrozen || w.FrozenBy != nil {
		t.Fatalf("wallet still frozen: %+v", w)
	}
}

// Two transactions debiting the same wallet must serialise on the row lock:
// only one of two 60.00 debits fits into 100.00.
func TestWallets_LockAndGet_ConcurrentGuard(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedWallet(t, db, 504, "100.00")

	repo := New(db)
	amount := decimal.RequireFromString("60.00")

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  int
	)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
				w, err := repo.LockAndGet(tx, 504)
				if err != nil {
					return err
				}

				if w.Balance.LessThan(amount) {
					return wallets.ErrInsufficientFunds
				}

				_, err = repo.DecreaseBalance(tx, 504, amount)
				return err
			})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				successes++
			case errors.Is(err, wallets.ErrInsufficientFunds):
				failures++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if successes != 1 || failures != 1 {
		t.Fatalf("successes=%d failures=%d, want 1/1", successes, failures)
	}

	w, err := repo.Get(t.Context(), 504)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !w.Balance.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("balance = %s, want 40.00", w.Balance)
	}
}
