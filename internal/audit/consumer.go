package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/resumeai-platform/resumeai/internal/nats"
)

const consumerName = "audit-persister"

// errMalformedEvent marks payloads that no redelivery can fix.
var errMalformedEvent = errors.New("malformed audit event")

// ackable is the part of jetstream.Msg the consumer settles.
type ackable interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// Inserter stores entries. *Repository satisfies it.
type Inserter interface {
	Insert(ctx context.Context, e *Entry) error
}

// Consumer drains the audit subject into the audit_logs table.
type Consumer struct {
	store       Inserter
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(store Inserter, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		store:       store,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, consumerName, inats.SubjectAuditEvent)
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handle(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// handle persists one message and settles it. Undecodable payloads are
// terminated; storage failures are redelivered.
func (c *Consumer) handle(ctx context.Context, msg ackable) {
	err := c.persist(ctx, msg.Data())
	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.Is(err, errMalformedEvent):
		slog.Error("audit consumer: dropping event", "error", err)
		_ = msg.Term()
	default:
		slog.Error("audit consumer: persisting event", "error", err)
		_ = msg.Nak()
	}
}

// persist decodes one message payload and stores it.
func (c *Consumer) persist(ctx context.Context, data []byte) error {
	var event inats.AuditEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	entry := EntryFromEvent(event, time.Now().UTC())
	if err := c.store.Insert(ctx, entry); err != nil {
		return err
	}

	slog.Debug("audit consumer: persisted event",
		"event_type", event.EventType,
		"account_id", event.AccountID,
	)
	return nil
}
