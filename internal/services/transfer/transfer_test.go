package transfer

import (
	"errors"
	"testing"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/config"
	"github.com/fastprodman/perlas-wallet/internal/infra/memstore"
	"github.com/fastprodman/perlas-wallet/internal/notify"
	"github.com/fastprodman/perlas-wallet/internal/repos/users"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/fastprodman/perlas-wallet/internal/services/wallet"
	"github.com/shopspring/decimal"
)

const (
	platformID = 1
	anaID      = 2
	betoID     = 3
)

type fixture struct {
	store  *memstore.Store
	notes  *notify.Recorder
	wallet *wallet.Service
	svc    *Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	store := memstore.New()
	store.AddUser(users.User{ID: platformID, Username: "platform"})
	store.AddUser(users.User{ID: anaID, Username: "ana", DisplayName: "Ana"})
	store.AddUser(users.User{ID: betoID, Username: "beto", DisplayName: "Beto"})

	w := wallet.New(wallet.Deps{
		Tx:             store,
		Users:          store.Users(),
		Wallets:        store.Wallets(),
		Transactions:   store.Transactions(),
		Auditor:        &audit.Memory{},
		PlatformUserID: platformID,
		Now:            func() time.Time { return time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC) },
	})

	for _, id := range []uint64{platformID, anaID} {
		err := w.Open(t.Context(), id)
		if err != nil {
			t.Fatalf("open %d: %v", id, err)
		}
	}

	notes := &notify.Recorder{}

	svc := New(Deps{
		Users:    store.Users(),
		Wallet:   w,
		Notifier: notes,
		Policy:   config.DefaultPolicy().Transfer,
	})

	return fixture{store: store, notes: notes, wallet: w, svc: svc}
}

func (f fixture) fund(t *testing.T, userID uint64, amount int64) {
	t.Helper()

	_, err := f.wallet.Credit(t.Context(), wallet.CreditRequest{UserID: userID, Amount: decimal.NewFromInt(amount)})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func (f fixture) balance(t *testing.T, userID uint64) decimal.Decimal {
	t.Helper()

	w, err := f.wallet.GetBalance(t.Context(), userID)
	if err != nil {
		t.Fatalf("balance %d: %v", userID, err)
	}

	return w.Balance
}

func TestTransferPearls_WithCommission(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fund(t, anaID, 50)

	res, err := f.svc.TransferPearls(t.Context(), Request{FromUserID: anaID, ToUsername: "beto", Amount: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if !res.Commission.Equal(decimal.NewFromInt(1)) || !res.NewBalance.Equal(decimal.NewFromInt(29)) {
		t.Fatalf("commission %s, new balance %s", res.Commission, res.NewBalance)
	}

	if res.SenderTxnID == "" || res.ReceiverTxnID == "" || res.CommissionTxnID == "" {
		t.Fatalf("missing transaction ids: %+v", res)
	}

	want := map[uint64]int64{anaID: 29, betoID: 20, platformID: 1}
	for id, amount := range want {
		if got := f.balance(t, id); !got.Equal(decimal.NewFromInt(amount)) {
			t.Fatalf("user %d balance = %s, want %d", id, got, amount)
		}
	}

	if _, _, transfers, _ := f.notes.Counts(); transfers != 1 || f.notes.Transfers[0].FromUsername != "ana" {
		t.Fatalf("recipient not notified: %+v", f.notes.Transfers)
	}

	_, err = f.svc.TransferPearls(t.Context(), Request{FromUserID: anaID, ToUsername: "beto", Amount: decimal.NewFromInt(30)})
	if !errors.Is(err, wallets.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}

	for id, amount := range want {
		if got := f.balance(t, id); !got.Equal(decimal.NewFromInt(amount)) {
			t.Fatalf("failed transfer changed user %d to %s", id, got)
		}
	}
}

func TestTransferPearls_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		to      string
		amount  string
		wantErr error
	}{
		{name: "unknown recipient", to: "nobody", amount: "5", wantErr: ErrRecipientNotFound},
		{name: "self", to: "ana", amount: "5", wantErr: ErrRecipientNotFound},
		{name: "platform", to: "platform", amount: "5", wantErr: ErrRecipientNotFound},
		{name: "empty recipient", to: " ", amount: "5", wantErr: ErrRecipientNotFound},
		{name: "zero", to: "beto", amount: "0", wantErr: wallet.ErrInvalidAmount},
		{name: "fractional cents", to: "beto", amount: "1.001", wantErr: wallet.ErrInvalidAmount},
		{name: "below minimum", to: "beto", amount: "0.50", wantErr: ErrAmountOutOfRange},
		{name: "above maximum", to: "beto", amount: "10000.01", wantErr: ErrAmountOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.fund(t, anaID, 50)

			_, err := f.svc.TransferPearls(t.Context(), Request{
				FromUserID: anaID,
				ToUsername: tt.to,
				Amount:     decimal.RequireFromString(tt.amount),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}

			if !f.balance(t, anaID).Equal(decimal.NewFromInt(50)) {
				t.Fatalf("rejected transfer moved money")
			}
		})
	}
}

func TestTransferPearls_FrozenWallets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		freeze  uint64
		wantErr error
	}{
		{name: "frozen recipient looks absent", freeze: betoID, wantErr: ErrRecipientNotFound},
		{name: "frozen sender is told", freeze: anaID, wantErr: wallet.ErrWalletFrozen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.fund(t, anaID, 50)

			err := f.wallet.Open(t.Context(), betoID)
			if err != nil {
				t.Fatalf("open beto: %v", err)
			}

			_, err = f.wallet.Freeze(t.Context(), tt.freeze, 900, "review")
			if err != nil {
				t.Fatalf("freeze: %v", err)
			}

			_, err = f.svc.TransferPearls(t.Context(), Request{FromUserID: anaID, ToUsername: "beto", Amount: decimal.NewFromInt(5)})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}

			if errors.Is(err, wallet.ErrWalletFrozen) && tt.freeze == betoID {
				t.Fatalf("recipient freeze leaked to sender: %v", err)
			}

			if !f.balance(t, anaID).Equal(decimal.NewFromInt(50)) {
				t.Fatalf("rejected transfer moved money")
			}
		})
	}
}

func TestCommission_Rounding(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		amount string
		want   string
	}{
		{amount: "20", want: "1"},
		{amount: "1", want: "0.05"},
		{amount: "0.10", want: "0.01"},
		{amount: "0.30", want: "0.02"},
		{amount: "12.34", want: "0.62"},
	}

	for _, tt := range tests {
		got := f.svc.Commission(decimal.RequireFromString(tt.amount))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Commission(%s) = %s, want %s", tt.amount, got, tt.want)
		}
	}
}

func TestVerifyUsername(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	r, err := f.svc.VerifyUsername(t.Context(), "@beto")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if r.UserID != betoID || r.DisplayName != "Beto" {
		t.Fatalf("unexpected recipient %+v", r)
	}

	_, err = f.svc.VerifyUsername(t.Context(), "ghost")
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("want ErrRecipientNotFound, got %v", err)
	}
}
