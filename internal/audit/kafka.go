package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

const defaultKafkaQueue = 1024

// Kafka appends records to a topic keyed by subject id, so every transition
// of one deposit or wallet lands on the same partition in order. Record
// only enqueues; a single goroutine writes, which keeps per-subject order.
// Records that cannot be queued or written fall back to the log sink.
type Kafka struct {
	w        messageWriter
	fallback Auditor
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

type queued struct {
	ctx context.Context
	r   Record
}

var _ Auditor = (*Kafka)(nil)

func NewKafka(w messageWriter, fallback Auditor) *Kafka {
	return newKafka(w, fallback, defaultKafkaQueue)
}

func newKafka(w messageWriter, fallback Auditor, size int) *Kafka {
	k := &Kafka{
		w:        w,
		fallback: fallback,
		timeout:  5 * time.Second,
		queue:    make(chan queued, size),
		done:     make(chan struct{}),
	}

	go k.loop()

	return k
}

// NewKafkaWriter builds the producer used by NewKafka.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

func (k *Kafka) Record(ctx context.Context, r Record) {
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		k.fallback.Record(ctx, r)
		return
	}

	select {
	case k.queue <- queued{ctx: context.WithoutCancel(ctx), r: r}:
	default:
		slog.Warn("audit queue full, using fallback", "action", r.Action)
		k.fallback.Record(ctx, r)
	}
}

// Close stops accepting records and waits for queued ones to be written.
func (k *Kafka) Close(ctx context.Context) error {
	k.mu.Lock()
	if !k.closed {
		k.closed = true
		close(k.queue)
	}
	k.mu.Unlock()

	select {
	case <-k.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain audit queue: %w", ctx.Err())
	}
}

func (k *Kafka) loop() {
	defer close(k.done)

	for q := range k.queue {
		k.write(q.ctx, q.r)
	}
}

func (k *Kafka) write(ctx context.Context, r Record) {
	value, err := json.Marshal(r)
	if err != nil {
		slog.Error("marshal audit record", "action", r.Action, "error", err)
		k.fallback.Record(ctx, r)

		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	err = k.w.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(r.SubjectID),
		Value: value,
		Time:  r.At,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(r.Action)},
		},
	})
	if err != nil {
		slog.Warn("audit write failed, using fallback", "action", r.Action, "error", err)
		k.fallback.Record(ctx, r)
	}
}
