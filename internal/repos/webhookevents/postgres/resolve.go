package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/webhookevents"
)

func (r *eventsRepo) Resolve(tx *sql.Tx, externalID string, status webhookevents.Status, errMsg string, at time.Time) error {
	res, err := tx.Exec(`
		UPDATE webhook_events
		SET status = $2, last_error = $3, processed_at = $4
		WHERE external_event_id = $1 AND status = 'pending'
	`, externalID, status, errMsg, at)
	if err != nil {
		return fmt.Errorf("resolve webhook event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return webhookevents.ErrAlreadyResolved
	}

	return nil
}

// RecordFailure runs outside the processing transaction, which has already
// rolled back by the time the failure is known.
func (r *eventsRepo) RecordFailure(ctx context.Context, externalID string, errMsg string) (int, error) {
	var attempts int

	err := r.db.QueryRowContext(ctx, `
		UPDATE webhook_events
		SET attempts = attempts + 1, last_error = $2
		WHERE external_event_id = $1 AND status = 'pending'
		RETURNING attempts
	`, externalID, errMsg).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, webhookevents.ErrAlreadyResolved
	}
	if err != nil {
		return 0, fmt.Errorf("record webhook failure: %w", err)
	}

	return attempts, nil
}
