package postgres

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
)

func (r *depositsRepo) Resolve(tx *sql.Tx, id string, res deposits.Resolution) error {
	if !res.Status.Terminal() {
		return fmt.Errorf("resolve deposit to %s: not a terminal status", res.Status)
	}

	out, err := tx.Exec(`
		UPDATE deposit_requests
		SET status = $2, validated_by = $3, validated_at = $4,
		    admin_notes = CASE WHEN $5 = '' THEN admin_notes ELSE $5 END,
		    updated_at = $4
		WHERE id = $1 AND status = 'PENDING'
	`, id, res.Status, res.ValidatedBy, res.At, res.Notes)
	if err != nil {
		return fmt.Errorf("resolve deposit: %w", err)
	}

	n, err := out.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("deposit %s: %w", id, deposits.ErrDepositNotPending)
	}

	return nil
}
