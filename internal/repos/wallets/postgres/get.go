package postgres

import (
	"context"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
)

func (r *walletsRepo) Get(ctx context.Context, userID uint64) (wallets.Wallet, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)

	w, err := scanWallet(row)
	if err != nil {
		return wallets.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}

	return w, nil
}
