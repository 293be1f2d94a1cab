package memstore

import (
	"context"
	"database/sql"

	"github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns"
)

type chargesView struct{ s *Store }

func (v chargesView) Insert(_ *sql.Tx, g gatewaytxns.GatewayTransaction) error {
	err := v.s.lock("gatewaytxns.Insert")
	if err != nil {
		return err
	}
	defer v.s.mu.Unlock()

	_, ok := v.s.st.charges[g.ExternalChargeID]
	if ok {
		return gatewaytxns.ErrDuplicateCharge
	}

	v.s.st.charges[g.ExternalChargeID] = g

	return nil
}

func (v chargesView) LockByChargeID(_ *sql.Tx, chargeID string) (gatewaytxns.GatewayTransaction, error) {
	err := v.s.lock("gatewaytxns.LockByChargeID")
	if err != nil {
		return gatewaytxns.GatewayTransaction{}, err
	}
	defer v.s.mu.Unlock()

	g, ok := v.s.st.charges[chargeID]
	if !ok {
		return gatewaytxns.GatewayTransaction{}, gatewaytxns.ErrGatewayTxnNotFound
	}

	return g, nil
}

func (v chargesView) UpdateStatus(_ *sql.Tx, chargeID string, upd gatewaytxns.StatusUpdate) error {
	err := v.s.lock("gatewaytxns.UpdateStatus")
	if err != nil {
		return err
	}
	defer v.s.mu.Unlock()

	g, ok := v.s.st.charges[chargeID]
	if !ok {
		return gatewaytxns.ErrGatewayTxnNotFound
	}

	g.ExternalStatus = upd.ExternalStatus
	g.ErrorCode = upd.ErrorCode
	g.ErrorMessage = upd.ErrorMessage
	g.UpdatedAt = upd.At

	if upd.AuthorizationCode != "" {
		g.AuthorizationCode = upd.AuthorizationCode
	}
	if upd.ChargedAt != nil {
		g.ChargedAt = upd.ChargedAt
	}

	v.s.st.charges[chargeID] = g

	return nil
}

func (v chargesView) GetByDepositID(_ context.Context, depositID string) (gatewaytxns.GatewayTransaction, error) {
	err := v.s.lock("gatewaytxns.GetByDepositID")
	if err != nil {
		return gatewaytxns.GatewayTransaction{}, err
	}
	defer v.s.mu.Unlock()

	var (
		found  gatewaytxns.GatewayTransaction
		exists bool
	)

	for _, g := range v.s.st.charges {
		if g.DepositRequestID == depositID && (!exists || g.CreatedAt.After(found.CreatedAt)) {
			found, exists = g, true
		}
	}

	if !exists {
		return gatewaytxns.GatewayTransaction{}, gatewaytxns.ErrGatewayTxnNotFound
	}

	return found, nil
}
