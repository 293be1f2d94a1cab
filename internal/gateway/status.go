package gateway

import "strings"

// ChargeStatus is the closed set of charge outcomes. The zero value is never
// produced by a parser.
type ChargeStatus int

const (
	StatusPending ChargeStatus = iota + 1
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s ChargeStatus) String() string {
	switch s {
	case StatusPending:
		return "charge_pending"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s ChargeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func ParseChargeStatus(raw string) (ChargeStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed":
		return StatusCompleted, true
	case "charge_pending", "in_progress", "pending":
		return StatusPending, true
	case "failed":
		return StatusFailed, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	default:
		return 0, false
	}
}
