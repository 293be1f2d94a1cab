package deposit

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
)

type ReviewRequest struct {
	DepositID string
	AdminID   uint64
	Approve   bool
	Notes     string
}

// Review lets an admin settle a PENDING deposit by hand, typically a bank
// transfer the payer has confirmed. Past its expiry a deposit can still be
// reviewed if its charge completed in time.
func (s *Service) Review(ctx context.Context, req ReviewRequest) (Outcome, error) {
	validator := "ADMIN:" + strconv.FormatUint(req.AdminID, 10)

	out := Outcome{Validator: validator}

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.clock()

		d, err := s.deposits.LockByID(tx, req.DepositID)
		if err != nil {
			return fmt.Errorf("lock deposit: %w", err)
		}

		if d.Status == deposits.StatusExpired {
			return ErrDepositExpired
		}

		if d.Status == deposits.StatusPending && !now.Before(d.ExpiresAt) {
			paid, _, err := s.chargePaid(ctx, d.ID)
			if err != nil {
				return err
			}

			if !paid {
				return ErrDepositExpired
			}
		}

		if d.Status.Terminal() {
			return deposits.ErrDepositNotPending
		}

		if req.Approve {
			res, err := s.approveTx(tx, d, validator, req.Notes, now)
			if err != nil {
				return err
			}

			out.NewBalance = res.NewBalance
		} else {
			err = s.rejectTx(tx, d, validator, req.Notes, transactions.StatusFailed, now)
			if err != nil {
				return err
			}

			out.ErrorCode = "REJECTED_BY_ADMIN"
			out.ErrorMessage = req.Notes
		}

		out.Changed = true

		out.Deposit, err = s.deposits.LockByID(tx, d.ID)
		if err != nil {
			return fmt.Errorf("reload deposit: %w", err)
		}

		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("review deposit: %w", err)
	}

	s.Publish(ctx, out)

	return out, nil
}
