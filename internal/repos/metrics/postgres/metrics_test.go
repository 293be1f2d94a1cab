package postgres

import (
	"testing"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/infra/pgtestutil"
	"github.com/shopspring/decimal"
)

func TestMetrics_Queries(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	_, err := db.Exec(`
		INSERT INTO users (id, username) VALUES (950, 'metrics');
		INSERT INTO transactions (id, user_id, type, amount, status, created_at) VALUES
			(gen_random_uuid(), 950, 'PEARL_PURCHASE', 10, 'COMPLETED', now() - interval '10 minutes'),
			(gen_random_uuid(), 950, 'PEARL_PURCHASE', 10, 'FAILED',    now() - interval '10 minutes'),
			(gen_random_uuid(), 950, 'PEARL_PURCHASE', 10, 'PENDING',   now() - interval '10 minutes'),
			(gen_random_uuid(), 950, 'PEARL_PURCHASE', 10, 'COMPLETED', now() - interval '3 hours');
		INSERT INTO deposit_requests (id, user_id, amount, pearls_amount, payment_method, reference_code, status, expires_at, created_at, validated_at) VALUES
			(gen_random_uuid(), 950, 10, 10, 'card', 'PRL-M1', 'APPROVED', now() + interval '1 day', now() - interval '20 minutes', now() - interval '10 minutes'),
			(gen_random_uuid(), 950, 10, 10, 'card', 'PRL-M2', 'PENDING',  now() + interval '1 day', now() - interval '2 hours', NULL);
	`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	repo := New(db)
	now := time.Now()

	c, err := repo.TransactionCounts(t.Context(), now.Add(-time.Hour), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c.Total != 3 || c.Completed != 1 || c.Failed != 1 || c.Pending != 1 {
		t.Fatalf("unexpected counts: %+v", c)
	}

	lat, err := repo.AvgSettlementLatency(t.Context(), now.Add(-time.Hour), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("latency: %v", err)
	}
	if lat < 9*time.Minute || lat > 11*time.Minute {
		t.Fatalf("latency = %s, want ~10m", lat)
	}

	stuck, err := repo.StuckPendingDeposits(t.Context(), now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("stuck: %v", err)
	}
	if stuck != 1 {
		t.Fatalf("stuck = %d, want 1", stuck)
	}

	vol, err := repo.DepositVolume(t.Context(), now.Add(-time.Hour), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	if !vol.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("volume = %s, want 10", vol)
	}
}
