package memstore

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/fastprodman/perlas-wallet/internal/repos/webhookevents"
)

type eventsView struct{ s *Store }

func (v eventsView) Insert(_ *sql.Tx, e webhookevents.Event) (bool, error) {
	err := v.s.lock("webhookevents.Insert")
	if err != nil {
		return false, err
	}
	defer v.s.mu.Unlock()

	_, ok := v.s.st.events[e.ExternalEventID]
	if ok {
		return false, nil
	}

	v.s.st.events[e.ExternalEventID] = e

	return true, nil
}

func (v eventsView) GetByExternalID(_ context.Context, externalID string) (webhookevents.Event, error) {
	return v.get("webhookevents.GetByExternalID", externalID)
}

func (v eventsView) LockByExternalID(_ *sql.Tx, externalID string) (webhookevents.Event, error) {
	return v.get("webhookevents.LockByExternalID", externalID)
}

func (v eventsView) get(op, externalID string) (webhookevents.Event, error) {
	err := v.s.lock(op)
	if err != nil {
		return webhookevents.Event{}, err
	}
	defer v.s.mu.Unlock()

	e, ok := v.s.st.events[externalID]
	if !ok {
		return webhookevents.Event{}, webhookevents.ErrEventNotFound
	}

	return e, nil
}

func (v eventsView) Resolve(_ *sql.Tx, externalID string, status webhookevents.Status, errMsg string, at time.Time) error {
	err := v.s.lock("webhookevents.Resolve")
	if err != nil {
		return err
	}
	defer v.s.mu.Unlock()

	e, ok := v.s.st.events[externalID]
	if !ok || e.Status != webhookevents.StatusPending {
		return webhookevents.ErrAlreadyResolved
	}

	e.Status = status
	e.LastError = errMsg
	e.ProcessedAt = &at
	v.s.st.events[externalID] = e

	return nil
}

func (v eventsView) RecordFailure(_ context.Context, externalID string, errMsg string) (int, error) {
	err := v.s.lock("webhookevents.RecordFailure")
	if err != nil {
		return 0, err
	}
	defer v.s.mu.Unlock()

	e, ok := v.s.st.events[externalID]
	if !ok || e.Status != webhookevents.StatusPending {
		return 0, webhookevents.ErrAlreadyResolved
	}

	e.Attempts++
	e.LastError = errMsg
	v.s.st.events[externalID] = e

	return e.Attempts, nil
}

func (v eventsView) ListPending(_ context.Context, receivedBefore time.Time, limit int) ([]webhookevents.Event, error) {
	err := v.s.lock("webhookevents.ListPending")
	if err != nil {
		return nil, err
	}
	defer v.s.mu.Unlock()

	var out []webhookevents.Event

	for _, e := range v.s.st.events {
		if e.Status == webhookevents.StatusPending && !e.ReceivedAt.After(receivedBefore) {
			out = append(out, e)
		}
	}

	slices.SortFunc(out, func(a, b webhookevents.Event) int {
		return a.ReceivedAt.Compare(b.ReceivedAt)
	})

	return out[:min(limit, len(out))], nil
}
