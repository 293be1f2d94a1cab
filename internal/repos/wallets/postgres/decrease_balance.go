package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
	"github.com/shopspring/decimal"
)

// DecreaseBalance never lets the balance go negative. A missing wallet is
// reported as insufficient funds since no row matched either way.
func (r *walletsRepo) DecreaseBalance(tx *sql.Tx, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal

	err := tx.QueryRow(`
		UPDATE wallets
		SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) || pgutils.IsCheckViolation(err) {
		return decimal.Zero, wallets.ErrInsufficientFunds
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("decrease balance: %w", err)
	}

	return balance, nil
}
