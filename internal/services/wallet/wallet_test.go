package wallet

import (
	"database/sql"
	"errors"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/infra/memstore"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/repos/users"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/shopspring/decimal"
)

const platformID = 1

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *memstore.Store
	audit *audit.Memory
	svc   *Service
}

func newFixture(t *testing.T, userIDs ...uint64) fixture {
	t.Helper()

	store := memstore.New()
	rec := &audit.Memory{}

	svc := New(Deps{
		Tx:             store,
		Users:          store.Users(),
		Wallets:        store.Wallets(),
		Transactions:   store.Transactions(),
		Auditor:        rec,
		PlatformUserID: platformID,
		Now:            func() time.Time { return fixedNow },
	})

	for _, id := range append([]uint64{platformID}, userIDs...) {
		store.AddUser(users.User{ID: id, Username: "u" + strconv.FormatUint(id, 10)})

		err := svc.Open(t.Context(), id)
		if err != nil {
			t.Fatalf("open wallet %d: %v", id, err)
		}
	}

	return fixture{store: store, audit: rec, svc: svc}
}

func (f fixture) fund(t *testing.T, userID uint64, amount string) {
	t.Helper()

	_, err := f.svc.Credit(t.Context(), CreditRequest{UserID: userID, Amount: dec(amount), Description: "seed"})
	if err != nil {
		t.Fatalf("fund %d: %v", userID, err)
	}
}

func (f fixture) balance(t *testing.T, userID uint64) decimal.Decimal {
	t.Helper()

	w, err := f.svc.GetBalance(t.Context(), userID)
	if err != nil {
		t.Fatalf("balance %d: %v", userID, err)
	}

	return w.Balance
}

func (f fixture) assertInvariant(t *testing.T, userID uint64) {
	t.Helper()

	inv, err := f.svc.VerifyInvariant(t.Context(), userID)
	if err != nil {
		t.Fatalf("verify invariant: %v", err)
	}

	if !inv.Holds() {
		t.Fatalf("user %d: balance %s != ledger %s", userID, inv.Balance, inv.LedgerSum)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOpen_UnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.svc.Open(t.Context(), 99)
	if !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestCredit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)

	res, err := f.svc.Credit(t.Context(), CreditRequest{UserID: 2, Amount: dec("12.50"), Description: "prize"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	if !res.NewBalance.Equal(dec("12.50")) {
		t.Fatalf("new balance = %s", res.NewBalance)
	}

	if res.Transaction.Type != transactions.TypePrizePayout || res.Transaction.Status != transactions.StatusCompleted {
		t.Fatalf("unexpected row: %+v", res.Transaction)
	}

	if f.audit.Count(audit.ActionWalletCredited) != 1 {
		t.Fatalf("credit was not audited")
	}

	f.assertInvariant(t, 2)
}

func TestCredit_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     CreditRequest
		prepare func(t *testing.T, f fixture)
		wantErr error
	}{
		{
			name:    "zero amount",
			req:     CreditRequest{UserID: 2, Amount: decimal.Zero},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "three decimals",
			req:     CreditRequest{UserID: 2, Amount: dec("1.005")},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "unknown type",
			req:     CreditRequest{UserID: 2, Amount: dec("1"), Type: "BONUS"},
			wantErr: ErrInvalidType,
		},
		{
			name:    "missing wallet",
			req:     CreditRequest{UserID: 77, Amount: dec("1")},
			wantErr: wallets.ErrWalletNotFound,
		},
		{
			name: "frozen wallet",
			req:  CreditRequest{UserID: 2, Amount: dec("1")},
			prepare: func(t *testing.T, f fixture) {
				w, _ := f.store.Wallets().Get(t.Context(), 2)
				w.IsFrozen = true
				f.store.SetWallet(w)
			},
			wantErr: ErrWalletFrozen,
		},
		{
			name: "inactive wallet",
			req:  CreditRequest{UserID: 2, Amount: dec("1")},
			prepare: func(t *testing.T, f fixture) {
				w, _ := f.store.Wallets().Get(t.Context(), 2)
				w.IsActive = false
				f.store.SetWallet(w)
			},
			wantErr: ErrWalletInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, 2)
			if tt.prepare != nil {
				tt.prepare(t, f)
			}

			_, err := f.svc.Credit(t.Context(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}

			if len(f.store.AllTransactions()) != 0 {
				t.Fatalf("rejected credit wrote a ledger row")
			}
		})
	}
}

func TestCredit_IsAtomic(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	f.store.FailOn("wallets.IncreaseBalance", errors.New("disk full"))

	_, err := f.svc.Credit(t.Context(), CreditRequest{UserID: 2, Amount: dec("5")})
	if err == nil {
		t.Fatal("want error")
	}

	if len(f.store.AllTransactions()) != 0 {
		t.Fatalf("ledger row survived a failed balance update")
	}

	f.store.FailOn("wallets.IncreaseBalance", nil)
	f.assertInvariant(t, 2)
}

func TestCredit_SettlesPendingRow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)

	pending := transactions.Transaction{
		ID:           "txn-1",
		UserID:       2,
		Type:         transactions.TypePearlPurchase,
		Amount:       dec("100"),
		PearlsAmount: dec("100"),
		Status:       transactions.StatusPending,
		CreatedAt:    fixedNow,
	}

	err := f.store.WithTx(t.Context(), func(tx *sql.Tx) error {
		return f.store.Transactions().Insert(tx, pending)
	})
	if err != nil {
		t.Fatalf("seed pending: %v", err)
	}

	f.assertInvariant(t, 2)

	_, err = f.svc.Credit(t.Context(), CreditRequest{UserID: 2, Amount: dec("50"), SettleTxnID: "txn-1"})
	if !errors.Is(err, ErrSettleMismatch) {
		t.Fatalf("want ErrSettleMismatch, got %v", err)
	}

	res, err := f.svc.Credit(t.Context(), CreditRequest{UserID: 2, Amount: dec("100"), SettleTxnID: "txn-1"})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if res.Transaction.ID != "txn-1" || res.Transaction.Status != transactions.StatusCompleted {
		t.Fatalf("pending row not completed: %+v", res.Transaction)
	}

	if len(f.store.AllTransactions()) != 1 {
		t.Fatalf("settlement inserted a new row")
	}

	_, err = f.svc.Credit(t.Context(), CreditRequest{UserID: 2, Amount: dec("100"), SettleTxnID: "txn-1"})
	if !errors.Is(err, transactions.ErrStatusConflict) {
		t.Fatalf("second settlement: want ErrStatusConflict, got %v", err)
	}

	if !f.balance(t, 2).Equal(dec("100")) {
		t.Fatalf("balance = %s, want 100", f.balance(t, 2))
	}

	f.assertInvariant(t, 2)
}

func TestCredit_AdminIsAudited(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	admin := uint64(900)

	res, err := f.svc.Credit(t.Context(), CreditRequest{UserID: 2, Amount: dec("3"), AdminID: &admin})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	if res.Transaction.AdminID == nil || *res.Transaction.AdminID != admin {
		t.Fatalf("admin id not stored on row")
	}

	if f.audit.Count(audit.ActionAdminCredit) != 1 {
		t.Fatalf("admin credit not audited")
	}
}

func TestDebit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	f.fund(t, 2, "10")

	res, err := f.svc.Debit(t.Context(), DebitRequest{UserID: 2, Amount: dec("4.25"), Type: transactions.TypeCardPurchase})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}

	if !res.NewBalance.Equal(dec("5.75")) {
		t.Fatalf("new balance = %s", res.NewBalance)
	}

	if !res.Transaction.Amount.Equal(dec("-4.25")) {
		t.Fatalf("debit row amount = %s, want negative", res.Transaction.Amount)
	}

	f.assertInvariant(t, 2)
}

func TestDebit_InsufficientFunds(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	f.fund(t, 2, "10")

	_, err := f.svc.Debit(t.Context(), DebitRequest{UserID: 2, Amount: dec("10.01"), Type: transactions.TypeCardPurchase})
	if !errors.Is(err, wallets.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}

	if !f.balance(t, 2).Equal(dec("10")) {
		t.Fatalf("balance changed on rejected debit")
	}

	if len(f.store.AllTransactions()) != 1 {
		t.Fatalf("rejected debit wrote a row")
	}
}

func TestDebit_Limits(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	f.fund(t, 2, "1000")

	w, _ := f.store.Wallets().Get(t.Context(), 2)
	w.DailyLimit = dec("100")
	w.MonthlyLimit = dec("150")
	f.store.SetWallet(w)

	debit := func(amount string) error {
		_, err := f.svc.Debit(t.Context(), DebitRequest{UserID: 2, Amount: dec(amount), Type: transactions.TypeWithdrawal})
		return err
	}

	err := debit("60")
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}

	err = debit("40.01")
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("daily cap: want ErrLimitExceeded, got %v", err)
	}

	err = debit("40")
	if err != nil {
		t.Fatalf("debit up to cap: %v", err)
	}

	// Move to the next day: the daily cap resets, the monthly one does not.
	f.svc.now = func() time.Time { return fixedNow.Add(24 * time.Hour) }

	err = debit("51")
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("monthly cap: want ErrLimitExceeded, got %v", err)
	}

	err = debit("50")
	if err != nil {
		t.Fatalf("debit up to monthly cap: %v", err)
	}

	f.assertInvariant(t, 2)
}

func TestTransfer_Conservation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, 3)
	f.fund(t, 2, "50")

	res, err := f.svc.Transfer(t.Context(), TransferRequest{
		FromUserID: 2,
		ToUserID:   3,
		Amount:     dec("20"),
		Commission: dec("1"),
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	want := map[uint64]string{2: "29", 3: "20", platformID: "1"}
	for id, amount := range want {
		if got := f.balance(t, id); !got.Equal(dec(amount)) {
			t.Fatalf("user %d balance = %s, want %s", id, got, amount)
		}

		f.assertInvariant(t, id)
	}

	var linked int

	for _, row := range f.store.AllTransactions() {
		if row.CorrelationID == res.CorrelationID {
			linked++
		}
	}

	if linked != 3 {
		t.Fatalf("want 3 rows sharing %s, got %d", res.CorrelationID, linked)
	}

	_, err = f.svc.Transfer(t.Context(), TransferRequest{FromUserID: 2, ToUserID: 3, Amount: dec("30"), Commission: dec("1.50")})
	if !errors.Is(err, wallets.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}

	for id, amount := range want {
		if got := f.balance(t, id); !got.Equal(dec(amount)) {
			t.Fatalf("failed transfer moved funds: user %d has %s", id, got)
		}
	}
}

func TestTransfer_Rejects(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, 3)
	f.fund(t, 2, "50")

	_, err := f.svc.Transfer(t.Context(), TransferRequest{FromUserID: 2, ToUserID: 2, Amount: dec("5")})
	if !errors.Is(err, ErrSameWallet) {
		t.Fatalf("same wallet: got %v", err)
	}

	_, err = f.svc.Freeze(t.Context(), 3, 900, "kyc")
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}

	_, err = f.svc.Transfer(t.Context(), TransferRequest{FromUserID: 2, ToUserID: 3, Amount: dec("5")})
	if !errors.Is(err, ErrWalletFrozen) || !errors.Is(err, ErrReceiverUnavailable) {
		t.Fatalf("frozen receiver: got %v", err)
	}

	_, err = f.svc.Unfreeze(t.Context(), 3, 900, "cleared")
	if err != nil {
		t.Fatalf("unfreeze: %v", err)
	}

	f.store.FailOn("transactions.Insert", errors.New("boom"))

	_, err = f.svc.Transfer(t.Context(), TransferRequest{FromUserID: 2, ToUserID: 3, Amount: dec("5"), Commission: dec("0.25")})
	if err == nil {
		t.Fatal("want injected insert failure")
	}

	f.store.FailOn("transactions.Insert", nil)

	for _, id := range []uint64{2, 3, platformID} {
		f.assertInvariant(t, id)
	}

	if !f.balance(t, 2).Equal(dec("50")) {
		t.Fatalf("partial transfer leaked: sender has %s", f.balance(t, 2))
	}
}

func TestFreeze_IsIdempotentAndAudited(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)

	for range 2 {
		w, err := f.svc.Freeze(t.Context(), 2, 900, "chargeback")
		if err != nil {
			t.Fatalf("freeze: %v", err)
		}

		if !w.IsFrozen || w.FrozenReason != "chargeback" || w.FrozenBy == nil || *w.FrozenBy != 900 {
			t.Fatalf("unexpected wallet: %+v", w)
		}
	}

	records := f.audit.Records()
	if len(records) != 2 {
		t.Fatalf("want 2 audit records, got %d", len(records))
	}

	if records[0].Details["changed"] != true || records[1].Details["changed"] != false {
		t.Fatalf("changed flags wrong: %v / %v", records[0].Details, records[1].Details)
	}

	w, err := f.svc.Unfreeze(t.Context(), 2, 901, "resolved")
	if err != nil {
		t.Fatalf("unfreeze: %v", err)
	}

	if w.IsFrozen || w.FrozenBy != nil {
		t.Fatalf("wallet still frozen: %+v", w)
	}
}

func TestInvariant_RandomOperations(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, 3, 4)
	r := rand.New(rand.NewPCG(7, 11))
	people := []uint64{2, 3, 4}

	for range 300 {
		user := people[r.IntN(len(people))]
		amount := decimal.New(int64(r.IntN(5000)+1), -2)

		switch r.IntN(3) {
		case 0:
			_, _ = f.svc.Credit(t.Context(), CreditRequest{UserID: user, Amount: amount})
		case 1:
			_, _ = f.svc.Debit(t.Context(), DebitRequest{UserID: user, Amount: amount, Type: transactions.TypeCardPurchase})
		default:
			to := people[r.IntN(len(people))]
			_, _ = f.svc.Transfer(t.Context(), TransferRequest{
				FromUserID: user,
				ToUserID:   to,
				Amount:     amount,
				Commission: amount.Mul(dec("0.05")).Round(2),
			})
		}
	}

	total := decimal.Zero

	for _, id := range append(people, platformID) {
		f.assertInvariant(t, id)

		b := f.balance(t, id)
		if b.IsNegative() {
			t.Fatalf("user %d went negative: %s", id, b)
		}

		total = total.Add(b)
	}

	credited := decimal.Zero

	for _, row := range f.store.AllTransactions() {
		if row.Type == transactions.TypePrizePayout {
			credited = credited.Add(row.Amount)
		}

		if row.Type == transactions.TypeCardPurchase {
			credited = credited.Add(row.Amount)
		}
	}

	if !total.Equal(credited) {
		t.Fatalf("transfers created or destroyed money: total %s, external net %s", total, credited)
	}
}
