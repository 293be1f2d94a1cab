package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/metrics"
	"github.com/shopspring/decimal"
)

type metricsRepo struct{ db *sql.DB }

func New(db *sql.DB) *metricsRepo {
	return &metricsRepo{db: db}
}

func (r *metricsRepo) TransactionCounts(ctx context.Context, from, to time.Time) (metrics.Counts, error) {
	var c metrics.Counts

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'FAILED'),
			COUNT(*) FILTER (WHERE status = 'PENDING')
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&c.Total, &c.Completed, &c.Failed, &c.Pending)
	if err != nil {
		return metrics.Counts{}, fmt.Errorf("count transactions: %w", err)
	}

	return c, nil
}

func (r *metricsRepo) AvgSettlementLatency(ctx context.Context, from, to time.Time) (time.Duration, error) {
	var seconds sql.NullFloat64

	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM (validated_at - created_at)))::float8
		FROM deposit_requests
		WHERE status = 'APPROVED' AND validated_at >= $1 AND validated_at < $2
	`, from, to).Scan(&seconds)
	if err != nil {
		return 0, fmt.Errorf("avg settlement latency: %w", err)
	}

	if !seconds.Valid {
		return 0, nil
	}

	return time.Duration(seconds.Float64 * float64(time.Second)), nil
}

func (r *metricsRepo) StuckPendingDeposits(ctx context.Context, createdBefore time.Time) (int, error) {
	var n int

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM deposit_requests
		WHERE status = 'PENDING' AND created_at < $1
	`, createdBefore).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count stuck deposits: %w", err)
	}

	return n, nil
}

func (r *metricsRepo) DepositVolume(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM deposit_requests
		WHERE status = 'APPROVED' AND created_at >= $1 AND created_at < $2
	`, from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("deposit volume: %w", err)
	}

	return sum, nil
}
