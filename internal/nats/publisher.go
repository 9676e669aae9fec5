package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishAuditEvent publishes an audit event, assigning an id when it has none.
// The stream's duplicate window drops a second publish of the same id.
func (p *Publisher) PublishAuditEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", SubjectAuditEvent, err)
	}
	if _, err := p.js.Publish(ctx, SubjectAuditEvent, payload, jetstream.WithMsgID(event.ID.String())); err != nil {
		return fmt.Errorf("publishing to %s: %w", SubjectAuditEvent, err)
	}
	return nil
}
