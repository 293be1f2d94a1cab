package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/shopspring/decimal"
)

func (r *walletsRepo) IncreaseBalance(tx *sql.Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal

	err := tx.QueryRow(`
		UPDATE wallets
		SET balance = balance + $2, updated_at = now()
		WHERE user_id = $1
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("increase balance: %w", wallets.ErrWalletNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("increase balance: %w", err)
	}

	return balance, nil
}
