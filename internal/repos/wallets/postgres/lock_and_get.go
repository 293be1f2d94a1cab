package postgres

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
)

func (r *walletsRepo) LockAndGet(tx *sql.Tx, userID uint64) (wallets.Wallet, error) {
	row := tx.QueryRow(`
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`, userID)

	w, err := scanWallet(row)
	if err != nil {
		return wallets.Wallet{}, fmt.Errorf("lock/get wallet: %w", err)
	}

	return w, nil
}
