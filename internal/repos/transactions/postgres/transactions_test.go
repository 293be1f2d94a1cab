package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/infra/pgtestutil"
	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

func seedUser(t *testing.T, db *sql.DB, id uint64) {
	t.Helper()

	pgtestutil.SeedUser(t, db, id, fmt.Sprintf("user_%d", id))
}

func newTxn(userID uint64, amount string, status transactions.Status, at time.Time) transactions.Transaction {
	return transactions.Transaction{
		ID:          ids.NewID(),
		UserID:      userID,
		Type:        transactions.TypePearlPurchase,
		Amount:      decimal.RequireFromString(amount),
		Description: "test",
		Status:      status,
		CreatedAt:   at,
	}
}

func insertAll(t *testing.T, db *sql.DB, repo *transactionsRepo, txns ...transactions.Transaction) {
	t.Helper()

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		for _, x := range txns {
			err := repo.Insert(tx, x)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestTransactions_Insert_Duplicate(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 601)

	repo := New(db)
	x := newTxn(601, "10.00", transactions.StatusCompleted, time.Now().UTC())

	insertAll(t, db, repo, x)

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		return repo.Insert(tx, x)
	})
	if !errors.Is(err, transactions.ErrDuplicateTransaction) {
		t.Fatalf("want ErrDuplicateTransaction, got %v", err)
	}
}

func TestTransactions_SetStatus_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		seed    transactions.Status
		from    transactions.Status
		to      transactions.Status
		wantErr error
	}{
		{name: "pending_to_completed", seed: transactions.StatusPending, from: transactions.StatusPending, to: transactions.StatusCompleted},
		{name: "pending_to_cancelled", seed: transactions.StatusPending, from: transactions.StatusPending, to: transactions.StatusCancelled},
		{name: "completed_is_final", seed: transactions.StatusCompleted, from: transactions.StatusPending, to: transactions.StatusFailed, wantErr: transactions.ErrStatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			seedUser(t, db, 602)

			repo := New(db)
			x := newTxn(602, "5.00", tt.seed, time.Now().UTC())
			insertAll(t, db, repo, x)

			err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
				return repo.SetStatus(tx, x.ID, tt.from, tt.to, time.Now().UTC())
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("set status: %v", err)
			}

			got, err := repo.Get(t.Context(), x.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Status != tt.to {
				t.Fatalf("status = %s, want %s", got.Status, tt.to)
			}
			if tt.to == transactions.StatusCompleted && got.CompletedAt == nil {
				t.Fatalf("completed_at not set")
			}
		})
	}
}

func TestTransactions_SumsAndList(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 603)

	repo := New(db)
	now := time.Now().UTC()

	debit := newTxn(603, "-20.00", transactions.StatusCompleted, now.Add(-time.Minute))
	debit.Type = transactions.TypePearlTransfer

	oldDebit := newTxn(603, "-5.00", transactions.StatusCompleted, now.Add(-48*time.Hour))
	oldDebit.Type = transactions.TypeWithdrawal

	insertAll(t, db, repo,
		newTxn(603, "50.00", transactions.StatusCompleted, now.Add(-time.Hour)),
		newTxn(603, "30.00", transactions.StatusPending, now.Add(-30*time.Minute)),
		debit,
		oldDebit,
	)

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		sum, err := repo.SumCompleted(tx, 603)
		if err != nil {
			return err
		}
		if !sum.Equal(decimal.RequireFromString("25.00")) {
			t.Errorf("sum completed = %s, want 25.00", sum)
		}

		debits, err := repo.SumDebitsSince(tx, 603, now.Add(-24*time.Hour))
		if err != nil {
			return err
		}
		if !debits.Equal(decimal.RequireFromString("20.00")) {
			t.Errorf("debits = %s, want 20.00", debits)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("sums: %v", err)
	}

	all, err := repo.List(t.Context(), 603, transactions.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len(all) = %d, want 4", len(all))
	}
	if !all[0].CreatedAt.After(all[1].CreatedAt) {
		t.Fatalf("list must be newest first")
	}

	pending, err := repo.List(t.Context(), 603, transactions.Filter{Status: transactions.StatusPending})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || !pending[0].Amount.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("unexpected pending list: %+v", pending)
	}

	page, err := repo.List(t.Context(), 603, transactions.Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len(page) = %d, want 2", len(page))
	}
}

func TestTransactions_SumCompleted_SeesOwnTx(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedUser(t, db, 604)

	repo := New(db)
	row := newTxn(604, "12.00", transactions.StatusCompleted, time.Now().UTC())

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		err := repo.Insert(tx, row)
		if err != nil {
			return err
		}

		sum, err := repo.SumCompleted(tx, 604)
		if err != nil {
			return err
		}
		if !sum.Equal(decimal.RequireFromString("12.00")) {
			t.Errorf("sum inside tx = %s, want 12.00", sum)
		}

		return errors.New("rollback")
	})
	if err == nil {
		t.Fatal("want rollback error")
	}

	err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		sum, err := repo.SumCompleted(tx, 604)
		if err != nil {
			return err
		}
		if !sum.IsZero() {
			t.Errorf("rolled back row counted: %s", sum)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("sum after rollback: %v", err)
	}
}
