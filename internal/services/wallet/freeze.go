package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
)

func (s *Service) Freeze(ctx context.Context, userID, adminID uint64, reason string) (wallets.Wallet, error) {
	return s.setFrozen(ctx, userID, adminID, reason, true)
}

func (s *Service) Unfreeze(ctx context.Context, userID, adminID uint64, reason string) (wallets.Wallet, error) {
	return s.setFrozen(ctx, userID, adminID, reason, false)
}

// setFrozen is idempotent. Every call is audited, including repeats that
// change nothing, so intent is never lost.
func (s *Service) setFrozen(ctx context.Context, userID, adminID uint64, reason string, frozen bool) (wallets.Wallet, error) {
	var (
		w       wallets.Wallet
		changed bool
	)

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error

		w, err = s.wallets.LockAndGet(tx, userID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}

		if w.IsFrozen == frozen {
			return nil
		}

		err = s.wallets.SetFrozen(tx, userID, wallets.FreezeUpdate{Frozen: frozen, Reason: reason, AdminID: adminID})
		if err != nil {
			return fmt.Errorf("set frozen: %w", err)
		}

		changed = true
		w.IsFrozen = frozen
		w.FrozenReason = ""
		w.FrozenBy = nil

		if frozen {
			w.FrozenReason = reason
			w.FrozenBy = &adminID
		}

		return nil
	})
	if err != nil {
		return wallets.Wallet{}, fmt.Errorf("set frozen=%t: %w", frozen, err)
	}

	action := audit.ActionWalletUnfrozen
	if frozen {
		action = audit.ActionWalletFrozen
	}

	s.audit.Record(ctx, audit.Record{
		Action:    action,
		Actor:     "admin:" + strconv.FormatUint(adminID, 10),
		UserID:    userID,
		SubjectID: "wallet:" + strconv.FormatUint(userID, 10),
		Details:   map[string]any{"reason": reason, "changed": changed},
		At:        s.clock(),
	})

	return w, nil
}
