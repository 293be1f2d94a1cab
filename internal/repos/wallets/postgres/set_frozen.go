package postgres

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
)

func (r *walletsRepo) SetFrozen(tx *sql.Tx, userID uint64, upd wallets.FreezeUpdate) error {
	var frozenBy any
	if upd.Frozen {
		frozenBy = upd.AdminID
	}

	reason := upd.Reason
	if !upd.Frozen {
		reason = ""
	}

	res, err := tx.Exec(`
		UPDATE wallets
		SET is_frozen = $2, frozen_reason = $3, frozen_by = $4, updated_at = now()
		WHERE user_id = $1
	`, userID, upd.Frozen, reason, frozenBy)
	if err != nil {
		return fmt.Errorf("set frozen: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return wallets.ErrWalletNotFound
	}

	return nil
}
