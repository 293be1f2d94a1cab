package postgres

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns"
)

func (r *gatewayTxnsRepo) UpdateStatus(tx *sql.Tx, chargeID string, upd gatewaytxns.StatusUpdate) error {
	res, err := tx.Exec(`
		UPDATE gateway_transactions
		SET external_status = $2,
		    error_code = $3,
		    error_message = $4,
		    authorization_code = CASE WHEN $5 = '' THEN authorization_code ELSE $5 END,
		    charged_at = COALESCE($6, charged_at),
		    updated_at = $7
		WHERE external_charge_id = $1
	`, chargeID, upd.ExternalStatus, upd.ErrorCode, upd.ErrorMessage, upd.AuthorizationCode, upd.ChargedAt, upd.At)
	if err != nil {
		return fmt.Errorf("update gateway status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return gatewaytxns.ErrGatewayTxnNotFound
	}

	return nil
}
