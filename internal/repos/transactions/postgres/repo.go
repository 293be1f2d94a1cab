package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
)

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

const txColumns = `
	id, user_id, type, amount, pearls_amount, description, status,
	from_user_id, to_user_id, reference_id, correlation_id, admin_id,
	created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (transactions.Transaction, error) {
	var t transactions.Transaction

	err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Amount, &t.PearlsAmount, &t.Description, &t.Status,
		&t.FromUserID, &t.ToUserID, &t.ReferenceID, &t.CorrelationID, &t.AdminID,
		&t.CreatedAt, &t.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return transactions.Transaction{}, transactions.ErrTransactionNotFound
	}
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	return t, nil
}
