// Package audit records state transitions for compliance review. The stream
// is write-only from the ledger's point of view.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Action string

const (
	ActionWalletOpened          Action = "wallet.opened"
	ActionWalletCredited        Action = "wallet.credited"
	ActionWalletDebited         Action = "wallet.debited"
	ActionWalletFrozen          Action = "wallet.frozen"
	ActionWalletUnfrozen        Action = "wallet.unfrozen"
	ActionAdminCredit           Action = "wallet.admin_credit"
	ActionTransferCompleted     Action = "transfer.completed"
	ActionDepositCreated        Action = "deposit.created"
	ActionDepositApproved       Action = "deposit.approved"
	ActionDepositRejected       Action = "deposit.rejected"
	ActionDepositExpired        Action = "deposit.expired"
	ActionDepositLateSettlement Action = "deposit.late_settlement"
	ActionWebhookProcessed      Action = "webhook.processed"
	ActionWebhookIgnored        Action = "webhook.ignored"
	ActionWebhookFailed         Action = "webhook.failed"
	ActionWebhookRejected       Action = "webhook.rejected"
)

type Record struct {
	Action    Action         `json:"action"`
	Actor     string         `json:"actor"`
	UserID    uint64         `json:"user_id,omitempty"`
	SubjectID string         `json:"subject_id"`
	Details   map[string]any `json:"details,omitempty"`
	At        time.Time      `json:"at"`
}

// Auditor never fails the caller; sinks log their own delivery errors.
type Auditor interface {
	Record(ctx context.Context, r Record)
}

// Log writes records to the structured log.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Record(ctx context.Context, r Record) {
	l.logger.InfoContext(ctx, "audit",
		"action", r.Action,
		"actor", r.Actor,
		"user_id", r.UserID,
		"subject_id", r.SubjectID,
		"details", r.Details,
		"at", r.At,
	)
}

// Memory keeps records in process, for tests and local runs.
type Memory struct {
	mu      sync.Mutex
	records []Record
}

func (m *Memory) Record(_ context.Context, r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, r)
}

func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, len(m.records))
	copy(out, m.records)

	return out
}

// Count returns how many records carry action.
func (m *Memory) Count(action Action) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0

	for _, r := range m.records {
		if r.Action == action {
			n++
		}
	}

	return n
}
