package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/customers"
)

type customersRepo struct{ db *sql.DB }

func New(db *sql.DB) *customersRepo {
	return &customersRepo{db: db}
}

func (r *customersRepo) Get(ctx context.Context, userID uint64, gateway string) (customers.Mapping, error) {
	var m customers.Mapping

	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, gateway, external_customer_id, name, email, phone, created_at
		FROM customer_mappings
		WHERE user_id = $1 AND gateway = $2
	`, userID, gateway).Scan(&m.UserID, &m.Gateway, &m.ExternalCustomerID, &m.Name, &m.Email, &m.Phone, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return customers.Mapping{}, customers.ErrCustomerNotFound
	}
	if err != nil {
		return customers.Mapping{}, fmt.Errorf("get customer mapping: %w", err)
	}

	return m, nil
}

// Save lets the first writer win; a racing caller gets the stored mapping.
func (r *customersRepo) Save(ctx context.Context, m customers.Mapping) (customers.Mapping, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customer_mappings (user_id, gateway, external_customer_id, name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, gateway) DO NOTHING
	`, m.UserID, m.Gateway, m.ExternalCustomerID, m.Name, m.Email, m.Phone, m.CreatedAt)
	if err != nil {
		return customers.Mapping{}, fmt.Errorf("save customer mapping: %w", err)
	}

	return r.Get(ctx, m.UserID, m.Gateway)
}
