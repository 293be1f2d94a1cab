package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMalformedEvent = errors.New("malformed webhook event")

type EventType string

const (
	EventChargeSucceeded EventType = "charge.succeeded"
	EventChargeFailed    EventType = "charge.failed"
	EventChargeCancelled EventType = "charge.cancelled"
	EventChargeCreated   EventType = "charge.created"
	EventChargePending   EventType = "charge.pending"
	EventVerification    EventType = "verification"
)

// Event is a parsed webhook notification.
type Event struct {
	ID                string
	Type              EventType
	ChargeID          string
	OrderID           string
	RawStatus         string
	ErrorCode         string
	ErrorMessage      string
	AuthorizationCode string
	OccurredAt        time.Time
}

// Status maps the event to a charge status. ok is false for events that do
// not describe a charge transition.
func (e Event) Status() (ChargeStatus, bool) {
	switch e.Type {
	case EventChargeSucceeded:
		return StatusCompleted, true
	case EventChargeFailed:
		return StatusFailed, true
	case EventChargeCancelled:
		return StatusCancelled, true
	case EventChargeCreated, EventChargePending:
		return StatusPending, true
	case EventVerification:
		return 0, false
	default:
		return 0, false
	}
}

// IdempotencyKey is the gateway event id, or a key derived from the charge
// transition when the gateway omits one.
func (e Event) IdempotencyKey() string {
	if e.ID != "" {
		return e.ID
	}

	return fmt.Sprintf("%s:%s:%s", e.Type, e.ChargeID, e.RawStatus)
}

type wireEvent struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	EventDate   time.Time     `json:"event_date"`
	Transaction *wireEventTxn `json:"transaction"`
}

type wireEventTxn struct {
	ID            string `json:"id"`
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	Authorization string `json:"authorization"`
	ErrorCode     any    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

func ParseEvent(payload []byte) (Event, error) {
	var w wireEvent

	err := json.Unmarshal(payload, &w)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if strings.TrimSpace(w.Type) == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}

	e := Event{
		ID:         w.ID,
		Type:       EventType(w.Type),
		OccurredAt: w.EventDate,
	}

	if w.Transaction != nil {
		e.ChargeID = w.Transaction.ID
		e.OrderID = w.Transaction.OrderID
		e.RawStatus = w.Transaction.Status
		e.AuthorizationCode = w.Transaction.Authorization
		e.ErrorMessage = w.Transaction.ErrorMessage

		if w.Transaction.ErrorCode != nil {
			e.ErrorCode = fmt.Sprint(w.Transaction.ErrorCode)
		}
	}

	_, charged := e.Status()
	if charged && e.ChargeID == "" {
		return Event{}, fmt.Errorf("%w: %s without transaction id", ErrMalformedEvent, e.Type)
	}

	return e, nil
}
