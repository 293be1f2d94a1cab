package postgres

import (
	"database/sql"
	"fmt"
)

func (r *walletsRepo) Create(tx *sql.Tx, userID uint64) error {
	_, err := tx.Exec(`
		INSERT INTO wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}

	return nil
}
