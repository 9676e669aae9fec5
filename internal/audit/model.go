package audit

import (
	"time"

	"github.com/google/uuid"

	inats "github.com/resumeai-platform/resumeai/internal/nats"
)

// Entry matches the audit_logs table schema.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"`
	Kind      string    `json:"kind,omitempty"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for audit queries.
// A nil AccountID lists every account.
type ListParams struct {
	AccountID *uuid.UUID
	EventType string
	Severity  string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}

// EntryFromEvent converts a stream event into a row, keeping the event id.
// Events without a timestamp are stamped with now.
func EntryFromEvent(event inats.AuditEvent, now time.Time) *Entry {
	severity := event.Severity
	if severity == "" {
		severity = "info"
	}
	created := event.Timestamp
	if created.IsZero() {
		created = now
	}
	id := event.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Entry{
		ID:        id,
		AccountID: event.AccountID,
		EventType: event.EventType,
		Severity:  severity,
		Kind:      event.Kind,
		Details:   event.Details,
		CreatedAt: created,
	}
}
