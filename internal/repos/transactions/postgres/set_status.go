package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
)

func (r *transactionsRepo) SetStatus(tx *sql.Tx, id string, from, to transactions.Status, at time.Time) error {
	var completedAt any
	if to == transactions.StatusCompleted {
		completedAt = at
	}

	res, err := tx.Exec(`
		UPDATE transactions
		SET status = $3, completed_at = COALESCE($4, completed_at)
		WHERE id = $1 AND status = $2
	`, id, from, to, completedAt)
	if err != nil {
		return fmt.Errorf("set transaction status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, transactions.ErrStatusConflict)
	}

	return nil
}
