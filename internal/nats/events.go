package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every audit event published by the API.
const StreamEvents = "RESUMEAI_EVENTS"

// Subject constants.
const (
	SubjectEventsAll  = "resumeai.events.>"
	SubjectAuditEvent = "resumeai.events.audit"
)

// Audit event types.
const (
	EventUsageConsumed    = "usage_consumed"
	EventUsageRejected    = "usage_rejected"
	EventAccountBlocked   = "account_blocked"
	EventAccountUnblocked = "account_unblocked"
	EventLimitsUpdated    = "limits_updated"
)

// AuditEvent is published for every metered generation, every quota rejection
// and every administrative change to an account.
//
// ID doubles as the JetStream message id and the audit row id, so a
// redelivered or republished event is stored once.
type AuditEvent struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"` // info, warn, error
	Kind      string    `json:"kind,omitempty"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}
