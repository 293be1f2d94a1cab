package postgres

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns"
)

func (r *gatewayTxnsRepo) Insert(tx *sql.Tx, g gatewaytxns.GatewayTransaction) error {
	_, err := tx.Exec(`
		INSERT INTO gateway_transactions (`+gatewayColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`,
		g.ID, g.DepositRequestID, g.ExternalChargeID, g.Gateway, g.Amount, g.Currency, g.Method,
		g.CardBrand, g.CardLast4, g.BankName, g.BankReference, g.ExternalStatus,
		g.ErrorCode, g.ErrorMessage, g.CustomerID, g.AuthorizationCode, g.DeviceSessionID,
		g.RiskScore, g.ChargedAt, g.ExpiresAt, g.CreatedAt, g.UpdatedAt,
	)
	if pgutils.IsUniqueViolation(err) {
		return gatewaytxns.ErrDuplicateCharge
	}
	if err != nil {
		return fmt.Errorf("insert gateway transaction: %w", err)
	}

	return nil
}
