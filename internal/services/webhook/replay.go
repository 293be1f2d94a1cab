package webhook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/gateway"
	"github.com/fastprodman/perlas-wallet/internal/repos/webhookevents"
)

// ReplayPending retries events that stayed pending for longer than
// ReplayAfter, e.g. after a crash or a failed apply. Events that reach
// MaxAttempts are marked failed and left for an operator. It returns how
// many events were resolved.
func (s *Service) ReplayPending(ctx context.Context) (int, error) {
	stale, err := s.events.ListPending(ctx, s.clock().Add(-s.policy.ReplayAfter), s.policy.ReplayBatch)
	if err != nil {
		return 0, fmt.Errorf("list pending events: %w", err)
	}

	var resolved int

	for _, e := range stale {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}

		if e.Attempts >= s.policy.MaxAttempts {
			err = s.giveUp(ctx, e)
			if err != nil {
				s.log.ErrorContext(ctx, "mark webhook failed", "event_id", e.ExternalEventID, "error", err)
				continue
			}

			resolved++

			continue
		}

		ev, err := gateway.ParseEvent(e.Payload)
		if err != nil {
			// Stored payloads were parsed once already.
			s.fail(ctx, e.ExternalEventID, err)
			continue
		}

		err = s.process(ctx, e.ExternalEventID, ev)
		switch {
		case errors.Is(err, ErrDuplicateWebhook):
		case err != nil:
			s.fail(ctx, e.ExternalEventID, err)
		default:
			resolved++
		}
	}

	if resolved > 0 {
		s.log.InfoContext(ctx, "replayed pending webhooks", "resolved", resolved, "scanned", len(stale))
	}

	return resolved, nil
}

func (s *Service) giveUp(ctx context.Context, e webhookevents.Event) error {
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		return s.events.Resolve(tx, e.ExternalEventID, webhookevents.StatusFailed, e.LastError, s.clock())
	})
	if err != nil {
		return fmt.Errorf("resolve failed event: %w", err)
	}

	s.log.ErrorContext(ctx, "webhook abandoned after max attempts",
		"event_id", e.ExternalEventID, "attempts", e.Attempts, "last_error", e.LastError)

	s.audit.Record(ctx, audit.Record{
		Action:    audit.ActionWebhookFailed,
		Actor:     s.gw.Name(),
		SubjectID: "webhook:" + e.ExternalEventID,
		Details:   map[string]any{"attempts": e.Attempts, "last_error": e.LastError, "charge_id": e.ChargeID},
		At:        s.clock(),
	})

	return nil
}
