// Package ids generates the identifiers used across the ledger: random UUIDs
// for row keys and monotonic ULIDs for human-facing reference codes.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	DepositPrefix  = "PRL"
	TransferPrefix = "TRF"
)

type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// ULID is safe for concurrent use; ids generated within the same millisecond
// stay sortable.
func (g *Generator) ULID(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

// ReferenceCode is the unique code a user quotes when asking about a deposit.
func (g *Generator) ReferenceCode(t time.Time) string {
	return DepositPrefix + "-" + g.ULID(t)
}

// CorrelationID links the ledger rows written by one transfer.
func (g *Generator) CorrelationID(t time.Time) string {
	return TransferPrefix + "-" + g.ULID(t)
}

func NewID() string {
	return uuid.NewString()
}
