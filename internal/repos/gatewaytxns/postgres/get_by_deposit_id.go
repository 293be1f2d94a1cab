package postgres

import (
	"context"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns"
)

// GetByDepositID returns the most recent charge made for the deposit.
func (r *gatewayTxnsRepo) GetByDepositID(ctx context.Context, depositID string) (gatewaytxns.GatewayTransaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+gatewayColumns+`
		FROM gateway_transactions
		WHERE deposit_request_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, depositID)

	g, err := scanGatewayTxn(row)
	if err != nil {
		return gatewaytxns.GatewayTransaction{}, fmt.Errorf("get gateway transaction: %w", err)
	}

	return g, nil
}
