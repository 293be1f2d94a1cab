package postgres

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/webhookevents"
)

func (r *eventsRepo) Insert(tx *sql.Tx, e webhookevents.Event) (bool, error) {
	res, err := tx.Exec(`
		INSERT INTO webhook_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_event_id) DO NOTHING
	`,
		e.ID, e.ExternalEventID, e.EventType, e.ChargeID, string(e.Payload), e.Signature,
		e.Status, e.Attempts, e.LastError, e.ReceivedAt, e.ProcessedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert webhook event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return n == 1, nil
}
