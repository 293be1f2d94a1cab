package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/webhookevents"
)

func (r *eventsRepo) GetByExternalID(ctx context.Context, externalID string) (webhookevents.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM webhook_events WHERE external_event_id = $1`, externalID)

	e, err := scanEvent(row)
	if err != nil {
		return webhookevents.Event{}, fmt.Errorf("get webhook event: %w", err)
	}

	return e, nil
}

func (r *eventsRepo) LockByExternalID(tx *sql.Tx, externalID string) (webhookevents.Event, error) {
	row := tx.QueryRow(`
		SELECT `+eventColumns+`
		FROM webhook_events
		WHERE external_event_id = $1
		FOR UPDATE
	`, externalID)

	e, err := scanEvent(row)
	if err != nil {
		return webhookevents.Event{}, fmt.Errorf("lock webhook event: %w", err)
	}

	return e, nil
}
