package notify

import (
	"context"
	"sync"
)

// Recorder keeps every notification in memory.
type Recorder struct {
	mu            sync.Mutex
	Confirmations []DepositConfirmation
	Failures      []PaymentFailure
	Transfers     []TransferReceived
	Alerts        []Alert
}

func (r *Recorder) SendDepositConfirmation(_ context.Context, n DepositConfirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Confirmations = append(r.Confirmations, n)

	return nil
}

func (r *Recorder) SendPaymentFailureNotification(_ context.Context, n PaymentFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Failures = append(r.Failures, n)

	return nil
}

func (r *Recorder) SendTransferReceived(_ context.Context, n TransferReceived) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Transfers = append(r.Transfers, n)

	return nil
}

func (r *Recorder) PublishAlert(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Alerts = append(r.Alerts, a)

	return nil
}

// Counts returns confirmations, failures, transfers and alerts seen so far.
func (r *Recorder) Counts() (int, int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.Confirmations), len(r.Failures), len(r.Transfers), len(r.Alerts)
}
