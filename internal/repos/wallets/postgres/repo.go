package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
)

type walletsRepo struct{ db *sql.DB }

func New(db *sql.DB) *walletsRepo {
	return &walletsRepo{db: db}
}

const walletColumns = `
	user_id, balance, daily_limit, monthly_limit, is_active,
	is_frozen, frozen_reason, frozen_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (wallets.Wallet, error) {
	var w wallets.Wallet

	err := row.Scan(
		&w.UserID, &w.Balance, &w.DailyLimit, &w.MonthlyLimit, &w.IsActive,
		&w.IsFrozen, &w.FrozenReason, &w.FrozenBy, &w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return wallets.Wallet{}, wallets.ErrWalletNotFound
	}
	if err != nil {
		return wallets.Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}

	return w, nil
}
