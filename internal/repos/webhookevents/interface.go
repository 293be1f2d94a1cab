package webhookevents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrEventNotFound = errors.New("webhook event not found")
	// ErrAlreadyResolved guards the single transition out of pending.
	ErrAlreadyResolved = errors.New("webhook event already resolved")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusIgnored   Status = "ignored"
	StatusFailed    Status = "failed"
)

type Event struct {
	ID              string
	ExternalEventID string
	EventType       string
	ChargeID        string
	Payload         []byte
	Signature       string
	Status          Status
	Attempts        int
	LastError       string
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
}

type Events interface {
	// Insert reports false when the external event id is already stored;
	// the unique index decides, not the caller.
	Insert(tx *sql.Tx, e Event) (bool, error)
	GetByExternalID(ctx context.Context, externalID string) (Event, error)
	LockByExternalID(tx *sql.Tx, externalID string) (Event, error)
	// Resolve moves a pending event to status and fails with
	// ErrAlreadyResolved otherwise.
	Resolve(tx *sql.Tx, externalID string, status Status, errMsg string, at time.Time) error
	RecordFailure(ctx context.Context, externalID string, errMsg string) (int, error)
	ListPending(ctx context.Context, receivedBefore time.Time, limit int) ([]Event, error)
}
