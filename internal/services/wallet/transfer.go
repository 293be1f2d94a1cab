package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/fastprodman/perlas-wallet/internal/repos/wallets"
)

// Transfer moves Amount from sender to receiver and Commission from sender
// to the platform wallet. Up to three ledger rows share one correlation id.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	if !validAmount(req.Amount) {
		return TransferResult{}, ErrInvalidAmount
	}

	if req.Commission.IsNegative() || !req.Commission.Equal(req.Commission.Round(2)) {
		return TransferResult{}, ErrInvalidAmount
	}

	if req.FromUserID == req.ToUserID {
		return TransferResult{}, ErrSameWallet
	}

	var res TransferResult

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error

		res, err = s.transferTx(tx, req)

		return err
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("transfer: %w", err)
	}

	s.audit.Record(ctx, audit.Record{
		Action:    audit.ActionTransferCompleted,
		Actor:     "user:" + strconv.FormatUint(req.FromUserID, 10),
		UserID:    req.FromUserID,
		SubjectID: "transfer:" + res.CorrelationID,
		Details: map[string]any{
			"to_user_id": req.ToUserID,
			"amount":     req.Amount.StringFixed(2),
			"commission": req.Commission.StringFixed(2),
		},
		At: s.clock(),
	})

	return res, nil
}

func (s *Service) transferTx(tx *sql.Tx, req TransferRequest) (TransferResult, error) {
	withCommission := req.Commission.IsPositive()

	// Lock in ascending id order so concurrent transfers between the same
	// wallets cannot deadlock.
	lockIDs := []uint64{req.FromUserID, req.ToUserID}
	if withCommission {
		lockIDs = append(lockIDs, s.platformUserID)
	}

	slices.Sort(lockIDs)
	lockIDs = slices.Compact(lockIDs)

	locked := make(map[uint64]wallets.Wallet, len(lockIDs))

	for _, id := range lockIDs {
		w, err := s.wallets.LockAndGet(tx, id)
		if err != nil {
			return TransferResult{}, fmt.Errorf("lock wallet %d: %w", id, err)
		}

		locked[id] = w
	}

	sender := locked[req.FromUserID]
	receiver := locked[req.ToUserID]

	err := usable(sender)
	if err != nil {
		return TransferResult{}, fmt.Errorf("sender: %w", err)
	}

	err = usable(receiver)
	if err != nil {
		return TransferResult{}, fmt.Errorf("%w: %w", ErrReceiverUnavailable, err)
	}

	total := req.Amount.Add(req.Commission)

	if sender.Balance.LessThan(total) {
		return TransferResult{}, wallets.ErrInsufficientFunds
	}

	now := s.clock()

	err = s.checkLimits(tx, sender, total, now)
	if err != nil {
		return TransferResult{}, err
	}

	senderBalance, err := s.wallets.DecreaseBalance(tx, req.FromUserID, total)
	if err != nil {
		return TransferResult{}, fmt.Errorf("debit sender: %w", err)
	}

	_, err = s.wallets.IncreaseBalance(tx, req.ToUserID, req.Amount)
	if err != nil {
		return TransferResult{}, fmt.Errorf("credit receiver: %w", err)
	}

	from, to := req.FromUserID, req.ToUserID
	res := TransferResult{
		CorrelationID: s.ids.CorrelationID(now),
		SenderBalance: senderBalance,
		Commission:    req.Commission,
	}

	rows := []transactions.Transaction{
		{
			ID:           ids.NewID(),
			UserID:       from,
			Type:         transactions.TypePearlTransfer,
			Amount:       total.Neg(),
			PearlsAmount: total.Neg(),
			Description:  req.Description,
			FromUserID:   &from,
			ToUserID:     &to,
		},
		{
			ID:           ids.NewID(),
			UserID:       to,
			Type:         transactions.TypePearlTransfer,
			Amount:       req.Amount,
			PearlsAmount: req.Amount,
			Description:  req.Description,
			FromUserID:   &from,
			ToUserID:     &to,
		},
	}

	res.SenderTxnID = rows[0].ID
	res.ReceiverTxnID = rows[1].ID

	if withCommission {
		_, err = s.wallets.IncreaseBalance(tx, s.platformUserID, req.Commission)
		if err != nil {
			return TransferResult{}, fmt.Errorf("credit commission: %w", err)
		}

		platform := s.platformUserID
		rows = append(rows, transactions.Transaction{
			ID:           ids.NewID(),
			UserID:       platform,
			Type:         transactions.TypeCommission,
			Amount:       req.Commission,
			PearlsAmount: req.Commission,
			Description:  "transfer commission",
			FromUserID:   &from,
			ToUserID:     &platform,
		})

		res.CommissionTxnID = rows[2].ID
	}

	for _, row := range rows {
		row.Status = transactions.StatusCompleted
		row.CorrelationID = res.CorrelationID
		row.CreatedAt = now
		row.CompletedAt = &now

		err = s.txns.Insert(tx, row)
		if err != nil {
			return TransferResult{}, fmt.Errorf("insert transfer row: %w", err)
		}
	}

	return res, nil
}
