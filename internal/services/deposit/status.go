package deposit

import (
	"context"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/gateway"
	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
)

type StatusView struct {
	Deposit        deposits.DepositRequest
	ChargeID       string
	ExternalStatus string
	ErrorCode      string
	ErrorMessage   string
}

// GetTransactionStatus returns the deposit as userID sees it. A PENDING
// deposit with a known charge is first reconciled against the gateway when
// polling is enabled; a failed poll is logged and the stored state returned.
func (s *Service) GetTransactionStatus(ctx context.Context, userID uint64, depositID string) (StatusView, error) {
	d, err := s.deposits.Get(ctx, depositID)
	if err != nil {
		return StatusView{}, fmt.Errorf("get deposit: %w", err)
	}

	if d.UserID != userID {
		return StatusView{}, ErrDepositNotFound
	}

	view := StatusView{Deposit: d}

	g, err := s.charges.GetByDepositID(ctx, d.ID)
	switch {
	case isNotFound(err):
		return view, nil
	case err != nil:
		return StatusView{}, fmt.Errorf("get charge: %w", err)
	}

	view.ChargeID = g.ExternalChargeID
	view.ExternalStatus = g.ExternalStatus
	view.ErrorCode = g.ErrorCode
	view.ErrorMessage = g.ErrorMessage

	if d.Status != deposits.StatusPending || !s.policy.PollGateway {
		return view, nil
	}

	ch, err := s.gw.GetCharge(ctx, g.ExternalChargeID)
	if err != nil {
		s.log.WarnContext(ctx, "status poll failed", "deposit_id", d.ID, "charge_id", g.ExternalChargeID, "error", err)
		return view, nil
	}

	if ch.Status == gateway.StatusPending {
		return view, nil
	}

	out, err := s.apply(ctx, ch.ID, UpdateFromCharge(ch), deposits.ValidatorSystemPoll)
	if err != nil {
		return StatusView{}, err
	}

	view.Deposit = out.Deposit
	view.ExternalStatus = ch.RawStatus
	view.ErrorCode = ch.ErrorCode
	view.ErrorMessage = ch.ErrorMessage

	return view, nil
}
