package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
)

func (r *depositsRepo) Get(ctx context.Context, id string) (deposits.DepositRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = $1`, id)

	d, err := scanDeposit(row)
	if err != nil {
		return deposits.DepositRequest{}, fmt.Errorf("get deposit: %w", err)
	}

	return d, nil
}

func (r *depositsRepo) LockByID(tx *sql.Tx, id string) (deposits.DepositRequest, error) {
	row := tx.QueryRow(`
		SELECT `+depositColumns+`
		FROM deposit_requests
		WHERE id = $1
		FOR UPDATE
	`, id)

	d, err := scanDeposit(row)
	if err != nil {
		return deposits.DepositRequest{}, fmt.Errorf("lock deposit: %w", err)
	}

	return d, nil
}
