package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
)

type depositsRepo struct{ db *sql.DB }

func New(db *sql.DB) *depositsRepo {
	return &depositsRepo{db: db}
}

const depositColumns = `
	id, user_id, amount, pearls_amount, payment_method, reference_code,
	integration_method, auto_approval_eligible, status, expires_at,
	validated_by, validated_at, admin_notes, transaction_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeposit(row rowScanner) (deposits.DepositRequest, error) {
	var (
		d     deposits.DepositRequest
		txnID sql.NullString
	)

	err := row.Scan(
		&d.ID, &d.UserID, &d.Amount, &d.PearlsAmount, &d.PaymentMethod, &d.ReferenceCode,
		&d.IntegrationMethod, &d.AutoApprovalEligible, &d.Status, &d.ExpiresAt,
		&d.ValidatedBy, &d.ValidatedAt, &d.AdminNotes, &txnID, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return deposits.DepositRequest{}, deposits.ErrDepositNotFound
	}
	if err != nil {
		return deposits.DepositRequest{}, fmt.Errorf("scan deposit: %w", err)
	}

	d.TransactionID = txnID.String

	return d, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}

	return s
}
