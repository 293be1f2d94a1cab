package memstore

import (
	"context"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/repos/metrics"
	"github.com/fastprodman/perlas-wallet/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

type metricsView struct{ s *Store }

func (s *Store) Metrics() metrics.Metrics { return metricsView{s} }

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (v metricsView) TransactionCounts(_ context.Context, from, to time.Time) (metrics.Counts, error) {
	err := v.s.lock("metrics.TransactionCounts")
	if err != nil {
		return metrics.Counts{}, err
	}
	defer v.s.mu.Unlock()

	var c metrics.Counts

	for _, t := range v.s.st.txns {
		if !within(t.CreatedAt, from, to) {
			continue
		}

		c.Total++

		switch t.Status {
		case transactions.StatusCompleted:
			c.Completed++
		case transactions.StatusFailed:
			c.Failed++
		case transactions.StatusPending:
			c.Pending++
		case transactions.StatusCancelled:
		}
	}

	return c, nil
}

func (v metricsView) AvgSettlementLatency(_ context.Context, from, to time.Time) (time.Duration, error) {
	err := v.s.lock("metrics.AvgSettlementLatency")
	if err != nil {
		return 0, err
	}
	defer v.s.mu.Unlock()

	var (
		total time.Duration
		n     int
	)

	for _, d := range v.s.st.deposits {
		if d.Status != deposits.StatusApproved || d.ValidatedAt == nil || !within(*d.ValidatedAt, from, to) {
			continue
		}

		total += d.ValidatedAt.Sub(d.CreatedAt)
		n++
	}

	if n == 0 {
		return 0, nil
	}

	return total / time.Duration(n), nil
}

func (v metricsView) StuckPendingDeposits(_ context.Context, createdBefore time.Time) (int, error) {
	err := v.s.lock("metrics.StuckPendingDeposits")
	if err != nil {
		return 0, err
	}
	defer v.s.mu.Unlock()

	n := 0

	for _, d := range v.s.st.deposits {
		if d.Status == deposits.StatusPending && d.CreatedAt.Before(createdBefore) {
			n++
		}
	}

	return n, nil
}

func (v metricsView) DepositVolume(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	err := v.s.lock("metrics.DepositVolume")
	if err != nil {
		return decimal.Zero, err
	}
	defer v.s.mu.Unlock()

	sum := decimal.Zero

	for _, d := range v.s.st.deposits {
		if d.Status == deposits.StatusApproved && within(d.CreatedAt, from, to) {
			sum = sum.Add(d.Amount)
		}
	}

	return sum, nil
}
