package deposit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/gateway"
	"github.com/fastprodman/perlas-wallet/internal/notify"
	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/repos/gatewaytxns"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/services/wallet"
	"github.com/shopspring/decimal"
)

// ChargeUpdate is a charge status as reported by the gateway.
type ChargeUpdate struct {
	Status            gateway.ChargeStatus
	RawStatus         string
	ErrorCode         string
	ErrorMessage      string
	AuthorizationCode string
	ChargedAt         *time.Time
}

func UpdateFromCharge(ch gateway.Charge) ChargeUpdate {
	return ChargeUpdate{
		Status:            ch.Status,
		RawStatus:         ch.RawStatus,
		ErrorCode:         ch.ErrorCode,
		ErrorMessage:      ch.ErrorMessage,
		AuthorizationCode: ch.AuthorizationCode,
		ChargedAt:         ch.ChargedAt,
	}
}

// Outcome describes what ApplyChargeStatus did. Publish turns it into
// notifications and audit records once the transaction has committed.
type Outcome struct {
	Deposit      deposits.DepositRequest
	ChargeID     string
	ChargeStatus gateway.ChargeStatus
	Validator    string
	// Changed is set when the deposit left PENDING.
	Changed bool
	// LateSettlement is a completed charge for a deposit that already
	// ended without being approved. Nothing is credited.
	LateSettlement bool
	// AwaitingReview is a completed charge on a deposit that needs manual
	// approval.
	AwaitingReview bool
	NewBalance     decimal.Decimal
	ErrorCode      string
	ErrorMessage   string
}

// ApplyChargeStatus records upd on the charge mirror and moves the linked
// deposit accordingly. The mirror row is locked before the deposit row;
// every caller takes them in that order. Deposits already in a terminal
// state are left alone, so a repeated or reordered status is a no-op.
// A PENDING deposit past its expiry is expired here unless the mirror
// already showed the charge completed; a completion arriving that late is
// a late settlement and credits nothing.
func (s *Service) ApplyChargeStatus(tx *sql.Tx, chargeID string, upd ChargeUpdate, validator string) (Outcome, error) {
	now := s.clock()

	g, err := s.charges.LockByChargeID(tx, chargeID)
	if err != nil {
		return Outcome{}, fmt.Errorf("lock charge %s: %w", chargeID, err)
	}

	raw := upd.RawStatus
	if raw == "" {
		raw = upd.Status.String()
	}

	err = s.charges.UpdateStatus(tx, chargeID, gatewaytxns.StatusUpdate{
		ExternalStatus:    raw,
		ErrorCode:         upd.ErrorCode,
		ErrorMessage:      upd.ErrorMessage,
		AuthorizationCode: upd.AuthorizationCode,
		ChargedAt:         upd.ChargedAt,
		At:                now,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("update charge status: %w", err)
	}

	d, err := s.deposits.LockByID(tx, g.DepositRequestID)
	if err != nil {
		return Outcome{}, fmt.Errorf("lock deposit: %w", err)
	}

	out := Outcome{
		Deposit:      d,
		ChargeID:     chargeID,
		ChargeStatus: upd.Status,
		Validator:    validator,
		ErrorCode:    upd.ErrorCode,
		ErrorMessage: upd.ErrorMessage,
	}

	if d.Status == deposits.StatusPending && !now.Before(d.ExpiresAt) && !completed(g.ExternalStatus) {
		err = s.expireTx(tx, d, validator, now)
		if err != nil {
			return Outcome{}, err
		}

		out.Changed = true
		out.LateSettlement = upd.Status == gateway.StatusCompleted

		out.Deposit, err = s.deposits.LockByID(tx, d.ID)
		if err != nil {
			return Outcome{}, fmt.Errorf("reload deposit: %w", err)
		}

		return out, nil
	}

	if d.Status.Terminal() {
		out.LateSettlement = upd.Status == gateway.StatusCompleted && d.Status != deposits.StatusApproved
		return out, nil
	}

	switch upd.Status {
	case gateway.StatusCompleted:
		if !d.AutoApprovalEligible {
			out.AwaitingReview = true
			return out, nil
		}

		res, err := s.approveTx(tx, d, validator, "", now)
		if err != nil {
			return Outcome{}, err
		}

		out.NewBalance = res.NewBalance
	case gateway.StatusFailed, gateway.StatusCancelled:
		closeAs := transactions.StatusFailed
		if upd.Status == gateway.StatusCancelled {
			closeAs = transactions.StatusCancelled
		}

		err = s.rejectTx(tx, d, validator, failureNote(upd.ErrorCode, upd.ErrorMessage), closeAs, now)
		if err != nil {
			return Outcome{}, err
		}
	case gateway.StatusPending:
		return out, nil
	default:
		return Outcome{}, fmt.Errorf("unhandled charge status %v", upd.Status)
	}

	out.Changed = true

	out.Deposit, err = s.deposits.LockByID(tx, d.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("reload deposit: %w", err)
	}

	return out, nil
}

func (s *Service) approveTx(tx *sql.Tx, d deposits.DepositRequest, validator, notes string, now time.Time) (wallet.Result, error) {
	res, err := s.wallet.CreditTx(tx, wallet.CreditRequest{
		UserID:      d.UserID,
		Amount:      d.PearlsAmount,
		Description: "deposit " + d.ReferenceCode,
		Type:        transactions.TypePearlPurchase,
		ReferenceID: d.ReferenceCode,
		SettleTxnID: d.TransactionID,
	})
	if err != nil {
		return wallet.Result{}, fmt.Errorf("credit deposit: %w", err)
	}

	err = s.deposits.Resolve(tx, d.ID, deposits.Resolution{
		Status:      deposits.StatusApproved,
		ValidatedBy: validator,
		Notes:       notes,
		At:          now,
	})
	if err != nil {
		return wallet.Result{}, fmt.Errorf("approve deposit: %w", err)
	}

	return res, nil
}

func (s *Service) rejectTx(tx *sql.Tx, d deposits.DepositRequest, validator, notes string, closeAs transactions.Status, now time.Time) error {
	err := s.deposits.Resolve(tx, d.ID, deposits.Resolution{
		Status:      deposits.StatusRejected,
		ValidatedBy: validator,
		Notes:       notes,
		At:          now,
	})
	if err != nil {
		return fmt.Errorf("reject deposit: %w", err)
	}

	err = s.wallet.ClosePendingTx(tx, d.TransactionID, closeAs)
	if err != nil {
		return fmt.Errorf("close deposit transaction: %w", err)
	}

	return nil
}

func completed(raw string) bool {
	st, ok := gateway.ParseChargeStatus(raw)
	return ok && st == gateway.StatusCompleted
}

func failureNote(code, msg string) string {
	switch {
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return code + ": " + msg
	}
}

// Publish emits the side effects of a committed Outcome. Nothing here can
// undo the ledger change.
func (s *Service) Publish(ctx context.Context, out Outcome) {
	d := out.Deposit

	base := audit.Record{
		Actor:     out.Validator,
		UserID:    d.UserID,
		SubjectID: "deposit:" + d.ID,
		At:        s.clock(),
		Details: map[string]any{
			"reference_code": d.ReferenceCode,
			"charge_id":      out.ChargeID,
			"charge_status":  out.ChargeStatus.String(),
			"amount":         d.Amount.StringFixed(2),
		},
	}

	switch {
	case out.LateSettlement:
		if out.Changed {
			expired := base
			expired.Action = audit.ActionDepositExpired
			expired.Details = maps.Clone(base.Details)
			s.audit.Record(ctx, expired)
		}

		s.log.WarnContext(ctx, "charge completed after deposit closed",
			"deposit_id", d.ID, "status", d.Status, "charge_id", out.ChargeID)

		base.Action = audit.ActionDepositLateSettlement
		base.Details["deposit_status"] = string(d.Status)
		s.audit.Record(ctx, base)
	case out.AwaitingReview:
		s.log.InfoContext(ctx, "charge completed, deposit awaits review", "deposit_id", d.ID)
	case !out.Changed:
		return
	case d.Status == deposits.StatusApproved:
		base.Action = audit.ActionDepositApproved
		base.Details["new_balance"] = out.NewBalance.StringFixed(2)
		s.audit.Record(ctx, base)

		err := s.notifier.SendDepositConfirmation(ctx, notify.DepositConfirmation{
			UserID:        d.UserID,
			DepositID:     d.ID,
			ReferenceCode: d.ReferenceCode,
			Amount:        d.PearlsAmount,
			NewBalance:    out.NewBalance,
		})
		if err != nil {
			s.log.WarnContext(ctx, "deposit confirmation not sent", "deposit_id", d.ID, "error", err)
		}
	case d.Status == deposits.StatusRejected:
		base.Action = audit.ActionDepositRejected
		base.Details["error_code"] = out.ErrorCode
		s.audit.Record(ctx, base)

		err := s.notifier.SendPaymentFailureNotification(ctx, notify.PaymentFailure{
			UserID:        d.UserID,
			DepositID:     d.ID,
			ReferenceCode: d.ReferenceCode,
			Amount:        d.Amount,
			ErrorCode:     out.ErrorCode,
			ErrorMessage:  out.ErrorMessage,
		})
		if err != nil {
			s.log.WarnContext(ctx, "payment failure notice not sent", "deposit_id", d.ID, "error", err)
		}
	case d.Status == deposits.StatusExpired:
		base.Action = audit.ActionDepositExpired
		s.audit.Record(ctx, base)
	}
}

// apply runs ApplyChargeStatus in its own transaction and publishes the
// result.
func (s *Service) apply(ctx context.Context, chargeID string, upd ChargeUpdate, validator string) (Outcome, error) {
	var out Outcome

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error

		out, err = s.ApplyChargeStatus(tx, chargeID, upd, validator)

		return err
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("apply charge status: %w", err)
	}

	s.Publish(ctx, out)

	return out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gatewaytxns.ErrGatewayTxnNotFound)
}
