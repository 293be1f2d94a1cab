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
	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/shopspring/decimal"
)

func newDeposit(t *testing.T, db *sql.DB, userID uint64, expiresAt time.Time) deposits.DepositRequest {
	t.Helper()

	pgtestutil.SeedUser(t, db, userID, fmt.Sprintf("user_%d", userID))

	now := time.Now().UTC()

	return deposits.DepositRequest{
		ID:                   ids.NewID(),
		UserID:               userID,
		Amount:               decimal.RequireFromString("100.00"),
		PearlsAmount:         decimal.RequireFromString("100.00"),
		PaymentMethod:        deposits.MethodCard,
		ReferenceCode:        ids.NewGenerator().ReferenceCode(now),
		IntegrationMethod:    "openpay",
		AutoApprovalEligible: true,
		Status:               deposits.StatusPending,
		ExpiresAt:            expiresAt,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func TestDeposits_InsertResolve(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	d := newDeposit(t, db, 701, time.Now().Add(time.Hour))

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		return repo.Insert(tx, d)
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := d
	dup.ID = ids.NewID()
	err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		return repo.Insert(tx, dup)
	})
	if !errors.Is(err, deposits.ErrDuplicateReference) {
		t.Fatalf("want ErrDuplicateReference, got %v", err)
	}

	resolve := func(status deposits.Status) error {
		return pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
			_, err := repo.LockByID(tx, d.ID)
			if err != nil {
				return err
			}
			return repo.Resolve(tx, d.ID, deposits.Resolution{
				Status:      status,
				ValidatedBy: deposits.ValidatorSystem,
				At:          time.Now().UTC(),
			})
		})
	}

	err = resolve(deposits.StatusApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	err = resolve(deposits.StatusExpired)
	if !errors.Is(err, deposits.ErrDepositNotPending) {
		t.Fatalf("terminal deposit must not move again, got %v", err)
	}

	got, err := repo.Get(t.Context(), d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != deposits.StatusApproved || got.ValidatedBy != deposits.ValidatorSystem || got.ValidatedAt == nil {
		t.Fatalf("unexpected deposit: %+v", got)
	}
}

func TestDeposits_ListExpired(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	now := time.Now().UTC()

	expired := newDeposit(t, db, 702, now.Add(-time.Minute))
	live := newDeposit(t, db, 702, now.Add(time.Hour))

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		err := repo.Insert(tx, expired)
		if err != nil {
			return err
		}
		return repo.Insert(tx, live)
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.ListExpired(t.Context(), now, 10)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(got) != 1 || got[0] != expired.ID {
		t.Fatalf("expired = %v, want [%s]", got, expired.ID)
	}
}
