package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/webhookevents"
)

func (r *eventsRepo) ListPending(ctx context.Context, receivedBefore time.Time, limit int) ([]webhookevents.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM webhook_events
		WHERE status = 'pending' AND received_at <= $1
		ORDER BY received_at
		LIMIT $2
	`, receivedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending webhook events: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var out []webhookevents.Event

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate pending webhook events: %w", err)
	}

	return out, nil
}
