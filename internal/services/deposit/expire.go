package deposit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
)

// ExpireStale moves PENDING deposits past their expiry to EXPIRED and
// cancels their ledger rows. Each candidate is re-read under its row lock,
// so a deposit approved concurrently is skipped. Running it twice expires
// nothing new.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	now := s.clock()

	candidates, err := s.deposits.ListExpired(ctx, now, s.policy.SweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list expired deposits: %w", err)
	}

	var (
		expired int
		errs    []error
	)

	for _, id := range candidates {
		ok, err := s.expireOne(ctx, id)
		if err != nil {
			s.log.ErrorContext(ctx, "expire deposit", "deposit_id", id, "error", err)
			errs = append(errs, fmt.Errorf("expire %s: %w", id, err))

			continue
		}

		if ok {
			expired++
		}
	}

	if expired > 0 {
		s.log.InfoContext(ctx, "expired stale deposits", "count", expired)
	}

	return expired, errors.Join(errs...)
}

func (s *Service) expireOne(ctx context.Context, id string) (bool, error) {
	var out Outcome

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.clock()

		d, err := s.deposits.LockByID(tx, id)
		if err != nil {
			return fmt.Errorf("lock deposit: %w", err)
		}

		if d.Status != deposits.StatusPending || now.Before(d.ExpiresAt) {
			return nil
		}

		paid, chargeID, err := s.chargePaid(ctx, d.ID)
		if err != nil {
			return err
		}

		if paid {
			s.log.WarnContext(ctx, "expired deposit has a completed charge, leaving for review",
				"deposit_id", d.ID, "charge_id", chargeID)

			return nil
		}

		out.ChargeID = chargeID

		err = s.expireTx(tx, d, deposits.ValidatorSystemSweep, now)
		if err != nil {
			return err
		}

		d.Status = deposits.StatusExpired
		out.Deposit = d
		out.Changed = true

		return nil
	})
	if err != nil {
		return false, err
	}

	if !out.Changed {
		return false, nil
	}

	out.Validator = deposits.ValidatorSystemSweep
	s.Publish(ctx, out)

	return true, nil
}

// chargePaid reports whether the latest charge for the deposit is already
// completed. Such a deposit is never expired; only Review settles it.
func (s *Service) chargePaid(ctx context.Context, depositID string) (bool, string, error) {
	g, err := s.charges.GetByDepositID(ctx, depositID)
	switch {
	case isNotFound(err):
		return false, "", nil
	case err != nil:
		return false, "", fmt.Errorf("get charge: %w", err)
	}

	return completed(g.ExternalStatus), g.ExternalChargeID, nil
}

func (s *Service) expireTx(tx *sql.Tx, d deposits.DepositRequest, validator string, now time.Time) error {
	err := s.deposits.Resolve(tx, d.ID, deposits.Resolution{
		Status:      deposits.StatusExpired,
		ValidatedBy: validator,
		At:          now,
	})
	if err != nil {
		return fmt.Errorf("expire deposit: %w", err)
	}

	err = s.wallet.ClosePendingTx(tx, d.TransactionID, transactions.StatusCancelled)
	if err != nil {
		return fmt.Errorf("cancel deposit transaction: %w", err)
	}

	return nil
}
