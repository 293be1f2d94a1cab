package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/infra/logging"
	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/repos/users"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
)

type Deps struct {
	Tx             pgutils.TxRunner
	Users          users.Users
	Wallets        wallets.Wallets
	Transactions   transactions.Transactions
	Auditor        audit.Auditor
	IDs            *ids.Generator
	PlatformUserID uint64
	Now            func() time.Time
}

// Service owns every mutation of wallets and ledger rows. A balance change
// and its ledger row always commit in the same transaction.
type Service struct {
	tx             pgutils.TxRunner
	users          users.Users
	wallets        wallets.Wallets
	txns           transactions.Transactions
	audit          audit.Auditor
	ids            *ids.Generator
	platformUserID uint64
	now            func() time.Time
	log            *slog.Logger
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}

	if d.IDs == nil {
		d.IDs = ids.NewGenerator()
	}

	return &Service{
		tx:             d.Tx,
		users:          d.Users,
		wallets:        d.Wallets,
		txns:           d.Transactions,
		audit:          d.Auditor,
		ids:            d.IDs,
		platformUserID: d.PlatformUserID,
		now:            d.Now,
		log:            logging.Component("wallet"),
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// Open creates the wallet for an existing user. Calling it again is a no-op.
func (s *Service) Open(ctx context.Context, userID uint64) error {
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		err := s.users.Exists(tx, userID)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}

		err = s.wallets.Create(tx, userID)
		if err != nil {
			return fmt.Errorf("create wallet: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("open wallet: %w", err)
	}

	return nil
}

func (s *Service) GetBalance(ctx context.Context, userID uint64) (wallets.Wallet, error) {
	w, err := s.wallets.Get(ctx, userID)
	if err != nil {
		return wallets.Wallet{}, fmt.Errorf("get balance: %w", err)
	}

	return w, nil
}

func (s *Service) GetHistory(ctx context.Context, userID uint64, f transactions.Filter) ([]transactions.Transaction, error) {
	out, err := s.txns.List(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	return out, nil
}

// VerifyInvariant sums the ledger on the same transaction that holds the
// wallet lock, so the balance and the sum describe one state.
func (s *Service) VerifyInvariant(ctx context.Context, userID uint64) (Invariant, error) {
	var inv Invariant

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		w, err := s.wallets.LockAndGet(tx, userID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}

		sum, err := s.txns.SumCompleted(tx, userID)
		if err != nil {
			return fmt.Errorf("sum ledger: %w", err)
		}

		inv = Invariant{Balance: w.Balance, LedgerSum: sum}

		return nil
	})
	if err != nil {
		return Invariant{}, fmt.Errorf("verify invariant: %w", err)
	}

	if !inv.Holds() {
		s.log.Error("balance invariant violated",
			"user_id", userID, "balance", inv.Balance, "ledger_sum", inv.LedgerSum)
	}

	return inv, nil
}

func usable(w wallets.Wallet) error {
	if !w.IsActive {
		return ErrWalletInactive
	}

	if w.IsFrozen {
		return ErrWalletFrozen
	}

	return nil
}
