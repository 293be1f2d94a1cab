package postgres

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
)

func (r *transactionsRepo) Insert(tx *sql.Tx, t transactions.Transaction) error {
	_, err := tx.Exec(`
		INSERT INTO transactions (`+txColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		t.ID, t.UserID, t.Type, t.Amount, t.PearlsAmount, t.Description, t.Status,
		t.FromUserID, t.ToUserID, t.ReferenceID, t.CorrelationID, t.AdminID,
		t.CreatedAt, t.CompletedAt,
	)
	if pgutils.IsUniqueViolation(err) {
		return transactions.ErrDuplicateTransaction
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}
