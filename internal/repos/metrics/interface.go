package metrics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Counts is a read-only tally of ledger rows created inside a window.
type Counts struct {
	Total     int
	Completed int
	Failed    int
	Pending   int
}

type Metrics interface {
	TransactionCounts(ctx context.Context, from, to time.Time) (Counts, error)
	// AvgSettlementLatency averages approval time minus creation time of
	// deposits approved inside the window.
	AvgSettlementLatency(ctx context.Context, from, to time.Time) (time.Duration, error)
	StuckPendingDeposits(ctx context.Context, createdBefore time.Time) (int, error)
	// DepositVolume sums approved deposit amounts created inside the window.
	DepositVolume(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}
