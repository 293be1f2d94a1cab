package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/repos/webhookevents"
)

type eventsRepo struct{ db *sql.DB }

func New(db *sql.DB) *eventsRepo {
	return &eventsRepo{db: db}
}

const eventColumns = `
	id, external_event_id, event_type, charge_id, payload, signature,
	status, attempts, last_error, received_at, processed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (webhookevents.Event, error) {
	var e webhookevents.Event

	err := row.Scan(
		&e.ID, &e.ExternalEventID, &e.EventType, &e.ChargeID, &e.Payload, &e.Signature,
		&e.Status, &e.Attempts, &e.LastError, &e.ReceivedAt, &e.ProcessedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return webhookevents.Event{}, webhookevents.ErrEventNotFound
	}
	if err != nil {
		return webhookevents.Event{}, fmt.Errorf("scan webhook event: %w", err)
	}

	return e, nil
}
