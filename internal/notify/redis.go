package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	EventDepositConfirmed = "deposit.confirmed"
	EventPaymentFailed    = "payment.failed"
	EventTransferReceived = "transfer.received"
	EventAlert            = "monitoring.alert"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis publishes notifications as JSON envelopes on pub/sub channels.
// Delivery and fan-out to email or push live with the subscribers.
type Redis struct {
	rdb           publisher
	notifyChannel string
	alertChannel  string
}

var (
	_ Notifier = (*Redis)(nil)
	_ Alerter  = (*Redis)(nil)
)

func NewRedis(rdb publisher, notifyChannel, alertChannel string) *Redis {
	return &Redis{rdb: rdb, notifyChannel: notifyChannel, alertChannel: alertChannel}
}

type envelope struct {
	EventType string    `json:"event_type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *Redis) publish(ctx context.Context, channel, eventType string, data any) error {
	payload, err := json.Marshal(envelope{EventType: eventType, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}

	err = r.rdb.Publish(ctx, channel, payload).Err()
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	slog.Debug("notification published", "event_type", eventType, "channel", channel)

	return nil
}

func (r *Redis) SendDepositConfirmation(ctx context.Context, n DepositConfirmation) error {
	return r.publish(ctx, r.notifyChannel, EventDepositConfirmed, n)
}

func (r *Redis) SendPaymentFailureNotification(ctx context.Context, n PaymentFailure) error {
	return r.publish(ctx, r.notifyChannel, EventPaymentFailed, n)
}

func (r *Redis) SendTransferReceived(ctx context.Context, n TransferReceived) error {
	return r.publish(ctx, r.notifyChannel, EventTransferReceived, n)
}

func (r *Redis) PublishAlert(ctx context.Context, a Alert) error {
	return r.publish(ctx, r.alertChannel, EventAlert, a)
}
