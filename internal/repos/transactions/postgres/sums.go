package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func (r *transactionsRepo) SumCompleted(tx *sql.Tx, userID uint64) (decimal.Decimal, error) {
	var sum decimal.Decimal

	err := tx.QueryRow(`
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND status = 'COMPLETED'
	`, userID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum completed: %w", err)
	}

	return sum, nil
}

func (r *transactionsRepo) SumDebitsSince(tx *sql.Tx, userID uint64, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal

	err := tx.QueryRow(`
		SELECT COALESCE(-SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND status = 'COMPLETED' AND amount < 0 AND created_at >= $2
	`, userID, since).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum debits: %w", err)
	}

	return sum, nil
}
