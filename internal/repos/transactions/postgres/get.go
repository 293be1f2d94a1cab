package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
)

func (r *transactionsRepo) Get(ctx context.Context, id string) (transactions.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, id)

	t, err := scanTransaction(row)
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	return t, nil
}

func (r *transactionsRepo) LockByID(tx *sql.Tx, id string) (transactions.Transaction, error) {
	row := tx.QueryRow(`
		SELECT `+txColumns+`
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, id)

	t, err := scanTransaction(row)
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("lock transaction: %w", err)
	}

	return t, nil
}
