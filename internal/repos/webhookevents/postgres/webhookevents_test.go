package postgres

import (
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/infra/pgtestutil"
	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/repos/webhookevents"
)

func newEvent(externalID string, receivedAt time.Time) webhookevents.Event {
	return webhookevents.Event{
		ID:              ids.NewID(),
		ExternalEventID: externalID,
		EventType:       "charge.succeeded",
		ChargeID:        "ch_1",
		Payload:         []byte(`{"type":"charge.succeeded"}`),
		Status:          webhookevents.StatusPending,
		ReceivedAt:      receivedAt,
	}
}

// The unique index decides which of several concurrent deliveries wins.
func TestEvents_Insert_ConcurrentDeliveries(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	var (
		wg       sync.WaitGroup
		inserted atomic.Int32
	)

	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
				ok, err := repo.Insert(tx, newEvent("evt_dup", time.Now().UTC()))
				if ok {
					inserted.Add(1)
				}
				return err
			})
			if err != nil {
				t.Errorf("insert: %v", err)
			}
		}()
	}

	wg.Wait()

	if got := inserted.Load(); got != 1 {
		t.Fatalf("inserted = %d, want 1", got)
	}
}

func TestEvents_ResolveAndFailures(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	now := time.Now().UTC()

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		_, err := repo.Insert(tx, newEvent("evt_a", now.Add(-time.Hour)))
		if err != nil {
			return err
		}
		_, err = repo.Insert(tx, newEvent("evt_b", now))
		return err
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	attempts, err := repo.RecordFailure(t.Context(), "evt_a", "db down")
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}

	pending, err := repo.ListPending(t.Context(), now.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ExternalEventID != "evt_a" || pending[0].LastError != "db down" {
		t.Fatalf("unexpected pending: %+v", pending)
	}

	err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		_, err := repo.LockByExternalID(tx, "evt_a")
		if err != nil {
			return err
		}
		return repo.Resolve(tx, "evt_a", webhookevents.StatusProcessed, "", now)
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		return repo.Resolve(tx, "evt_a", webhookevents.StatusIgnored, "", now)
	})
	if !errors.Is(err, webhookevents.ErrAlreadyResolved) {
		t.Fatalf("want ErrAlreadyResolved, got %v", err)
	}

	got, err := repo.GetByExternalID(t.Context(), "evt_a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != webhookevents.StatusProcessed || got.ProcessedAt == nil {
		t.Fatalf("unexpected event: %+v", got)
	}

	_, err = repo.GetByExternalID(t.Context(), "evt_missing")
	if !errors.Is(err, webhookevents.ErrEventNotFound) {
		t.Fatalf("want ErrEventNotFound, got %v", err)
	}
}
