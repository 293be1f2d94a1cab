package postgres

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns"
)

func (r *gatewayTxnsRepo) LockByChargeID(tx *sql.Tx, chargeID string) (gatewaytxns.GatewayTransaction, error) {
	row := tx.QueryRow(`
		SELECT `+gatewayColumns+`
		FROM gateway_transactions
		WHERE external_charge_id = $1
		FOR UPDATE
	`, chargeID)

	g, err := scanGatewayTxn(row)
	if err != nil {
		return gatewaytxns.GatewayTransaction{}, fmt.Errorf("lock gateway transaction: %w", err)
	}

	return g, nil
}
