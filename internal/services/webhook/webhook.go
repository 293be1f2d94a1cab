// Package webhook turns gateway notifications into ledger state exactly
// once. Deliveries are at least once and may arrive in any order; the
// unique external event id and the row locks taken by the deposit service
// make a repeated or reordered event a no-op.
package webhook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/audit"
	"github.com/fastprodman/perlas-wallet/internal/config"
	"github.com/fastprodman/perlas-wallet/internal/gateway"
	"github.com/fastprodman/perlas-wallet/internal/infra/ids"
	"github.com/fastprodman/perlas-wallet/internal/infra/logging"
	"github.com/fastprodman/perlas-wallet/internal/infra/pgutils"
	"github.com/fastprodman/perlas-wallet/internal/repos/deposits"
	"github.com/fastprodman/perlas-wallet/internal/repos/webhookevents"
	"github.com/fastprodman/perlas-wallet/internal/services/deposit"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrDuplicateWebhook marks an event that was already resolved. It never
	// leaves HandleWebhook.
	ErrDuplicateWebhook = errors.New("duplicate webhook")
)

type Deps struct {
	Tx      pgutils.TxRunner
	Events  webhookevents.Events
	Deposit *deposit.Service
	Gateway gateway.Gateway
	Auditor audit.Auditor
	Secret  string
	Policy  config.WebhookPolicy
	Now     func() time.Time
}

type Service struct {
	tx      pgutils.TxRunner
	events  webhookevents.Events
	deposit *deposit.Service
	gw      gateway.Gateway
	audit   audit.Auditor
	secret  string
	policy  config.WebhookPolicy
	now     func() time.Time
	log     *slog.Logger
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}

	return &Service{
		tx:      d.Tx,
		events:  d.Events,
		deposit: d.Deposit,
		gw:      d.Gateway,
		audit:   d.Auditor,
		secret:  d.Secret,
		policy:  d.Policy,
		now:     d.Now,
		log:     logging.Component("webhook"),
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// HandleWebhook verifies, stores and applies one delivery. It returns nil
// once the event is stored, even when applying it failed: the stored
// pending event is retried by ReplayPending rather than by redelivery.
// ErrInvalidSignature and ErrMalformedPayload mean nothing was stored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !s.gw.VerifyWebhookSignature(payload, signature, s.secret) {
		logging.Security(ctx, s.log, "webhook signature rejected",
			"gateway", s.gw.Name(), "payload_bytes", len(payload))

		s.audit.Record(ctx, audit.Record{
			Action:    audit.ActionWebhookRejected,
			Actor:     s.gw.Name(),
			SubjectID: "webhook:unverified",
			Details:   map[string]any{"reason": "signature mismatch"},
			At:        s.clock(),
		})

		return ErrInvalidSignature
	}

	ev, err := gateway.ParseEvent(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	key := ev.IdempotencyKey()

	existing, err := s.events.GetByExternalID(ctx, key)
	switch {
	case err == nil && existing.Status != webhookevents.StatusPending:
		s.log.DebugContext(ctx, "duplicate webhook skipped", "event_id", key, "status", existing.Status)
		return nil
	case err != nil && !errors.Is(err, webhookevents.ErrEventNotFound):
		return fmt.Errorf("look up event: %w", err)
	}

	if errors.Is(err, webhookevents.ErrEventNotFound) {
		err = s.store(ctx, key, ev, payload, signature)
		if err != nil {
			return err
		}
	}

	err = s.process(ctx, key, ev)
	if err != nil && !errors.Is(err, ErrDuplicateWebhook) {
		s.fail(ctx, key, err)
	}

	return nil
}

// store commits the pending event on its own, before any side effect. A
// concurrent delivery of the same event loses the insert and carries on to
// process, where the event row lock serialises the two.
func (s *Service) store(ctx context.Context, key string, ev gateway.Event, payload []byte, signature string) error {
	e := webhookevents.Event{
		ID:              ids.NewID(),
		ExternalEventID: key,
		EventType:       string(ev.Type),
		ChargeID:        ev.ChargeID,
		Payload:         payload,
		Signature:       signature,
		Status:          webhookevents.StatusPending,
		ReceivedAt:      s.clock(),
	}

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		inserted, err := s.events.Insert(tx, e)
		if err != nil {
			return err
		}

		if !inserted {
			s.log.DebugContext(ctx, "webhook already stored by a concurrent delivery", "event_id", key)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("store event: %w", err)
	}

	return nil
}

// process applies a stored pending event. The event is resolved in the
// same transaction as the deposit and ledger writes.
func (s *Service) process(ctx context.Context, key string, ev gateway.Event) error {
	var (
		out      deposit.Outcome
		resolved webhookevents.Status
	)

	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		e, err := s.events.LockByExternalID(tx, key)
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}

		if e.Status != webhookevents.StatusPending {
			return ErrDuplicateWebhook
		}

		resolved = webhookevents.StatusIgnored

		status, ok := ev.Status()
		if ok {
			upd := deposit.ChargeUpdate{
				Status:            status,
				RawStatus:         ev.RawStatus,
				ErrorCode:         ev.ErrorCode,
				ErrorMessage:      ev.ErrorMessage,
				AuthorizationCode: ev.AuthorizationCode,
			}

			if status == gateway.StatusCompleted && !ev.OccurredAt.IsZero() {
				at := ev.OccurredAt.UTC()
				upd.ChargedAt = &at
			}

			out, err = s.deposit.ApplyChargeStatus(tx, ev.ChargeID, upd, deposits.ValidatorSystemWebhook)
			if err != nil {
				return err
			}

			resolved = webhookevents.StatusProcessed
		}

		return s.events.Resolve(tx, key, resolved, "", s.clock())
	})
	if err != nil {
		return fmt.Errorf("process event %s: %w", key, err)
	}

	if resolved == webhookevents.StatusProcessed {
		s.deposit.Publish(ctx, out)
	}

	action := audit.ActionWebhookProcessed
	if resolved == webhookevents.StatusIgnored {
		action = audit.ActionWebhookIgnored
	}

	s.audit.Record(ctx, audit.Record{
		Action:    action,
		Actor:     s.gw.Name(),
		UserID:    out.Deposit.UserID,
		SubjectID: "webhook:" + key,
		Details: map[string]any{
			"type":      string(ev.Type),
			"charge_id": ev.ChargeID,
			"changed":   out.Changed,
		},
		At: s.clock(),
	})

	return nil
}

// fail records a processing error on the still pending event.
func (s *Service) fail(ctx context.Context, key string, cause error) {
	attempts, err := s.events.RecordFailure(ctx, key, cause.Error())
	if err != nil {
		s.log.ErrorContext(ctx, "record webhook failure", "event_id", key, "error", err, "cause", cause)
		return
	}

	s.log.ErrorContext(ctx, "webhook processing failed, left pending",
		"event_id", key, "attempts", attempts, "error", cause)
}
