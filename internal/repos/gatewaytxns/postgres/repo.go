package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns"
)

type gatewayTxnsRepo struct{ db *sql.DB }

func New(db *sql.DB) *gatewayTxnsRepo {
	return &gatewayTxnsRepo{db: db}
}

const gatewayColumns = `
	id, deposit_request_id, external_charge_id, gateway, amount, currency, method,
	card_brand, card_last4, bank_name, bank_reference, external_status,
	error_code, error_message, customer_id, authorization_code, device_session_id,
	risk_score, charged_at, expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGatewayTxn(row rowScanner) (gatewaytxns.GatewayTransaction, error) {
	var g gatewaytxns.GatewayTransaction

	err := row.Scan(
		&g.ID, &g.DepositRequestID, &g.ExternalChargeID, &g.Gateway, &g.Amount, &g.Currency, &g.Method,
		&g.CardBrand, &g.CardLast4, &g.BankName, &g.BankReference, &g.ExternalStatus,
		&g.ErrorCode, &g.ErrorMessage, &g.CustomerID, &g.AuthorizationCode, &g.DeviceSessionID,
		&g.RiskScore, &g.ChargedAt, &g.ExpiresAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return gatewaytxns.GatewayTransaction{}, gatewaytxns.ErrGatewayTxnNotFound
	}
	if err != nil {
		return gatewaytxns.GatewayTransaction{}, fmt.Errorf("scan gateway transaction: %w", err)
	}

	return g, nil
}
