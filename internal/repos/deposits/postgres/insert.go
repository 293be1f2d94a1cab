package postgres

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
)

func (r *depositsRepo) Insert(tx *sql.Tx, d deposits.DepositRequest) error {
	_, err := tx.Exec(`
		INSERT INTO deposit_requests (`+depositColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		d.ID, d.UserID, d.Amount, d.PearlsAmount, d.PaymentMethod, d.ReferenceCode,
		d.IntegrationMethod, d.AutoApprovalEligible, d.Status, d.ExpiresAt,
		d.ValidatedBy, d.ValidatedAt, d.AdminNotes, nullIfEmpty(d.TransactionID), d.CreatedAt, d.UpdatedAt,
	)
	if pgutils.IsUniqueViolation(err) {
		return deposits.ErrDuplicateReference
	}
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}

	return nil
}
