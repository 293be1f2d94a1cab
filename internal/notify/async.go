package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultAsyncTimeout = 10 * time.Second

// Async sends on a background goroutine so callers never wait on, or fail
// because of, the notification channel. Errors are logged.
type Async struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

var _ Notifier = (*Async)(nil)

func NewAsync(next Notifier, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = defaultAsyncTimeout
	}

	return &Async{next: next, timeout: timeout}
}

func (a *Async) run(ctx context.Context, kind string, userID uint64, fn func(context.Context) error) {
	a.wg.Add(1)

	go func() {
		defer a.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		err := fn(sendCtx)
		if err != nil {
			slog.Warn("notification failed", "kind", kind, "user_id", userID, "error", err)
		}
	}()
}

func (a *Async) SendDepositConfirmation(ctx context.Context, n DepositConfirmation) error {
	a.run(ctx, EventDepositConfirmed, n.UserID, func(ctx context.Context) error {
		return a.next.SendDepositConfirmation(ctx, n)
	})

	return nil
}

func (a *Async) SendPaymentFailureNotification(ctx context.Context, n PaymentFailure) error {
	a.run(ctx, EventPaymentFailed, n.UserID, func(ctx context.Context) error {
		return a.next.SendPaymentFailureNotification(ctx, n)
	})

	return nil
}

func (a *Async) SendTransferReceived(ctx context.Context, n TransferReceived) error {
	a.run(ctx, EventTransferReceived, n.UserID, func(ctx context.Context) error {
		return a.next.SendTransferReceived(ctx, n)
	})

	return nil
}

// Wait blocks until in-flight sends finish. Used on shutdown.
func (a *Async) Wait() {
	a.wg.Wait()
}
